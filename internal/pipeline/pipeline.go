package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicebudget/internal/audio"
	"voicebudget/internal/core"
	"voicebudget/internal/extract"
	"voicebudget/internal/log"
	"voicebudget/internal/transcribe"
)

var (
	// ErrUnauthenticated means the request carried no resolvable identity.
	// The transcript is still returned so the user can retype the expense.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrPersistence means the expense validated but could not be stored.
	ErrPersistence = errors.New("persisting expense failed")
)

// Persister stores an accepted candidate for a user. Implemented by the
// expense service, which also resolves the budget link and emits events.
type Persister interface {
	PersistCandidate(ctx context.Context, identity core.Identity, candidate core.ExpenseCandidate, transcript string) (core.Expense, error)
}

// Result is everything a single voice submission produced. Transcript and
// RawModelOutput are filled as soon as they exist, even when a later stage
// fails; the user always gets the transcript back.
type Result struct {
	Transcript     string
	RawModelOutput string
	Candidate      *core.ExpenseCandidate
	Expense        *core.Expense
	Reject         core.RejectReason
}

// Rejected reports whether the submission was turned away by validation
// rather than failing outright.
func (r Result) Rejected() bool {
	return r.Reject != core.RejectNone
}

// Pipeline runs a voice submission through its stages sequentially:
// transcribe, extract, validate, persist. Stages are I/O bound and each
// depends on the previous one's output, so there is nothing to parallelize
// within one submission; concurrency lives at the HTTP layer.
type Pipeline struct {
	transcriber transcribe.Transcriber
	extractor   extract.Extractor
	persister   Persister
	now         func() time.Time
	log         *log.Logger
}

func New(t transcribe.Transcriber, e extract.Extractor, p Persister, logger *log.Logger) *Pipeline {
	return &Pipeline{
		transcriber: t,
		extractor:   e,
		persister:   p,
		now:         time.Now,
		log:         logger.WithComponent(log.ComponentPipeline),
	}
}

// Run processes one recorded submission. The error taxonomy:
//
//   - transcribe.ErrTranscriptionFailed, extract.ErrExtractionService:
//     fatal, Result may be partially filled
//   - ErrUnauthenticated, ErrPersistence: Result carries the transcript
//     (and candidate, for persistence failures)
//   - nil error with Result.Reject set: validation turned the input away
//   - nil error, Reject empty: Result.Expense is the stored record
//
// identity is nil when the session layer could not resolve a user.
func (p *Pipeline) Run(ctx context.Context, identity *core.Identity, blob *audio.Blob) (Result, error) {
	var res Result

	transcript, err := p.transcriber.Transcribe(ctx, blob)
	if err != nil {
		return res, err
	}
	res.Transcript = transcript

	candidate, rawOutput, err := p.extractor.Extract(ctx, transcript)
	res.RawModelOutput = rawOutput
	if err != nil {
		if errors.Is(err, extract.ErrExtractionParse) {
			// The model answered garbage. Not the user's fault and not
			// fatal; reject so they keep the transcript.
			res.Reject = core.RejectExtractionParse
			p.log.WarnContext(ctx, "submission rejected",
				log.FieldRejectReason, string(res.Reject),
				log.FieldTranscriptLen, len(transcript))
			return res, nil
		}
		return res, err
	}
	res.Candidate = candidate

	validated, reject := core.ValidateCandidate(candidate, p.now())
	if reject != core.RejectNone {
		res.Reject = reject
		p.log.InfoContext(ctx, "submission rejected",
			log.FieldRejectReason, string(reject),
			log.FieldTranscriptLen, len(transcript))
		return res, nil
	}
	res.Candidate = &validated

	if identity == nil {
		return res, ErrUnauthenticated
	}

	expense, err := p.persister.PersistCandidate(ctx, *identity, validated, transcript)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	res.Expense = &expense

	p.log.InfoContext(ctx, "expense recorded from voice",
		log.FieldUserID, identity.ID,
		log.FieldExpenseID, expense.ID,
		log.FieldCategory, string(expense.Category),
		log.FieldAmountCents, expense.Amount.Cents)

	return res, nil
}
