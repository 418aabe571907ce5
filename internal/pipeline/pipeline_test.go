package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicebudget/internal/audio"
	"voicebudget/internal/core"
	"voicebudget/internal/extract"
	"voicebudget/internal/log"
	"voicebudget/internal/transcribe"
)

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, blob *audio.Blob) (string, error) {
	return f.transcript, f.err
}

type fakeExtractor struct {
	candidate *core.ExpenseCandidate
	raw       string
	err       error
}

func (f *fakeExtractor) Extract(ctx context.Context, transcript string) (*core.ExpenseCandidate, string, error) {
	return f.candidate, f.raw, f.err
}

type fakePersister struct {
	err     error
	stored  []core.Expense
	nextID  string
	lastTxn string
}

func (f *fakePersister) PersistCandidate(ctx context.Context, identity core.Identity, c core.ExpenseCandidate, transcript string) (core.Expense, error) {
	if f.err != nil {
		return core.Expense{}, f.err
	}
	id := f.nextID
	if id == "" {
		id = "exp-1"
	}
	e := core.Expense{
		ID:            id,
		UserID:        identity.ID,
		Amount:        c.Amount,
		Category:      c.Category,
		Description:   c.Description,
		Transcription: transcript,
		SpentAt:       c.Date,
	}
	f.stored = append(f.stored, e)
	f.lastTxn = transcript
	return e, nil
}

func testIdentity() *core.Identity {
	return &core.Identity{ID: "user-1", Email: "test@example.com"}
}

func testBlob() *audio.Blob {
	return &audio.Blob{Data: []byte("fake"), MIME: "audio/webm", Filename: "note.webm"}
}

func newPipeline(t transcribe.Transcriber, e extract.Extractor, p Persister) *Pipeline {
	return New(t, e, p, log.New(log.DefaultConfig()))
}

func TestRunHappyPath(t *testing.T) {
	persister := &fakePersister{}
	p := newPipeline(
		&fakeTranscriber{transcript: "I spent $12.50 on lunch today"},
		&fakeExtractor{
			candidate: &core.ExpenseCandidate{
				Amount:      core.Money{Cents: 1250},
				Category:    core.CategoryFood,
				Description: "lunch",
			},
			raw: `{"amount":12.5,"category":"food","description":"lunch"}`,
		},
		persister,
	)

	res, err := p.Run(context.Background(), testIdentity(), testBlob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rejected() {
		t.Fatalf("unexpected rejection %s", res.Reject)
	}
	if res.Expense == nil {
		t.Fatal("expected stored expense")
	}
	if res.Expense.Amount.Cents != 1250 || res.Expense.Category != core.CategoryFood {
		t.Errorf("unexpected expense %+v", res.Expense)
	}
	if res.Transcript != "I spent $12.50 on lunch today" {
		t.Errorf("unexpected transcript %q", res.Transcript)
	}
	if persister.lastTxn != res.Transcript {
		t.Error("transcript not handed to persister verbatim")
	}
	if res.Candidate == nil || res.Candidate.Date.IsZero() {
		t.Error("accepted candidate should have a defaulted date")
	}
}

func TestRunTranscriptionFailureIsFatal(t *testing.T) {
	p := newPipeline(
		&fakeTranscriber{err: transcribe.ErrTranscriptionFailed},
		&fakeExtractor{},
		&fakePersister{},
	)
	_, err := p.Run(context.Background(), testIdentity(), testBlob())
	if !errors.Is(err, transcribe.ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestRunExtractionServiceFailureIsFatal(t *testing.T) {
	p := newPipeline(
		&fakeTranscriber{transcript: "I spent ten dollars"},
		&fakeExtractor{err: extract.ErrExtractionService},
		&fakePersister{},
	)
	res, err := p.Run(context.Background(), testIdentity(), testBlob())
	if !errors.Is(err, extract.ErrExtractionService) {
		t.Fatalf("expected ErrExtractionService, got %v", err)
	}
	if res.Transcript != "I spent ten dollars" {
		t.Error("transcript should survive an extraction failure")
	}
}

func TestRunParseFailureBecomesRejection(t *testing.T) {
	p := newPipeline(
		&fakeTranscriber{transcript: "mumble"},
		&fakeExtractor{raw: "sorry, no JSON here", err: extract.ErrExtractionParse},
		&fakePersister{},
	)
	res, err := p.Run(context.Background(), testIdentity(), testBlob())
	if err != nil {
		t.Fatalf("parse failure should not be fatal: %v", err)
	}
	if res.Reject != core.RejectExtractionParse {
		t.Fatalf("expected extraction_parse reject, got %q", res.Reject)
	}
	if res.RawModelOutput != "sorry, no JSON here" {
		t.Error("raw model output should be kept for audit")
	}
}

func TestRunNoExpenseInTranscript(t *testing.T) {
	persister := &fakePersister{}
	p := newPipeline(
		&fakeTranscriber{transcript: "nice weather today"},
		&fakeExtractor{candidate: nil, raw: "null"},
		persister,
	)
	res, err := p.Run(context.Background(), testIdentity(), testBlob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reject != core.RejectNoExpenseExtracted {
		t.Fatalf("expected no_expense_extracted, got %q", res.Reject)
	}
	if len(persister.stored) != 0 {
		t.Error("nothing should be persisted for a rejected submission")
	}
	if res.Transcript != "nice weather today" {
		t.Error("transcript should accompany the rejection")
	}
}

func TestRunEmptyTranscriptStillFlowsThrough(t *testing.T) {
	// Silence transcribes to "" and the extractor sees no expense in it.
	// That is a rejection, not an error.
	p := newPipeline(
		&fakeTranscriber{transcript: ""},
		&fakeExtractor{candidate: nil, raw: "null"},
		&fakePersister{},
	)
	res, err := p.Run(context.Background(), testIdentity(), testBlob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reject != core.RejectNoExpenseExtracted {
		t.Fatalf("expected no_expense_extracted, got %q", res.Reject)
	}
}

func TestRunInvalidAmountRejected(t *testing.T) {
	p := newPipeline(
		&fakeTranscriber{transcript: "I spent nothing"},
		&fakeExtractor{candidate: &core.ExpenseCandidate{
			Amount:      core.Money{Cents: 0},
			Category:    core.CategoryFood,
			Description: "nothing",
		}},
		&fakePersister{},
	)
	res, err := p.Run(context.Background(), testIdentity(), testBlob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reject != core.RejectInvalidAmount {
		t.Fatalf("expected invalid_amount, got %q", res.Reject)
	}
}

func TestRunEmptyDescriptionRejectedNotPersisted(t *testing.T) {
	// A candidate with a blank description must be turned away by
	// validation, never reach the persister, and never surface as a
	// persistence error.
	persister := &fakePersister{}
	p := newPipeline(
		&fakeTranscriber{transcript: "twelve fifty"},
		&fakeExtractor{candidate: &core.ExpenseCandidate{
			Amount:   core.Money{Cents: 1250},
			Category: core.CategoryFood,
		}},
		persister,
	)
	res, err := p.Run(context.Background(), testIdentity(), testBlob())
	if err != nil {
		t.Fatalf("empty description must not surface as an error: %v", err)
	}
	if res.Reject != core.RejectEmptyDescription {
		t.Fatalf("expected empty_description, got %q", res.Reject)
	}
	if len(persister.stored) != 0 {
		t.Error("nothing should reach the persister")
	}
	if res.Transcript != "twelve fifty" {
		t.Error("transcript should accompany the rejection")
	}
}

func TestRunUnknownCategoryRejected(t *testing.T) {
	p := newPipeline(
		&fakeTranscriber{transcript: "weekly shop, fifty bucks"},
		&fakeExtractor{candidate: &core.ExpenseCandidate{
			Amount:      core.Money{Cents: 5000},
			Category:    core.Category("groceries"),
			Description: "weekly shop",
		}},
		&fakePersister{},
	)
	res, err := p.Run(context.Background(), testIdentity(), testBlob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reject != core.RejectUnknownCategory {
		t.Fatalf("expected unknown_category, got %q", res.Reject)
	}
}

func TestRunUnauthenticatedKeepsTranscript(t *testing.T) {
	p := newPipeline(
		&fakeTranscriber{transcript: "I spent $12.50 on lunch today"},
		&fakeExtractor{candidate: &core.ExpenseCandidate{
			Amount:      core.Money{Cents: 1250},
			Category:    core.CategoryFood,
			Description: "lunch",
		}},
		&fakePersister{},
	)
	res, err := p.Run(context.Background(), nil, testBlob())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if res.Transcript != "I spent $12.50 on lunch today" {
		t.Error("transcript should be returned to the unauthenticated caller")
	}
}

func TestRunPersistenceFailure(t *testing.T) {
	p := newPipeline(
		&fakeTranscriber{transcript: "I spent $12.50 on lunch today"},
		&fakeExtractor{candidate: &core.ExpenseCandidate{
			Amount:      core.Money{Cents: 1250},
			Category:    core.CategoryFood,
			Description: "lunch",
		}},
		&fakePersister{err: errors.New("disk full")},
	)
	res, err := p.Run(context.Background(), testIdentity(), testBlob())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if res.Transcript == "" || res.Candidate == nil {
		t.Error("transcript and candidate should survive a persistence failure")
	}
}

func TestRunDoubleSubmitIsNotDeduplicated(t *testing.T) {
	persister := &fakePersister{}
	p := newPipeline(
		&fakeTranscriber{transcript: "five dollar coffee"},
		&fakeExtractor{candidate: &core.ExpenseCandidate{
			Amount:      core.Money{Cents: 500},
			Category:    core.CategoryFood,
			Description: "coffee",
			Date:        time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		}},
		persister,
	)
	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background(), testIdentity(), testBlob()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if len(persister.stored) != 2 {
		t.Fatalf("expected 2 stored expenses, got %d", len(persister.stored))
	}
}
