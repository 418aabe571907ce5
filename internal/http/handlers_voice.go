package http

import (
	"errors"
	"net/http"
	"strings"

	"voicebudget/internal/audio"
	"voicebudget/internal/core"
	"voicebudget/internal/extract"
	"voicebudget/internal/log"
	"voicebudget/internal/pipeline"
	"voicebudget/internal/transcribe"
)

// voiceResponse is the envelope for every voice submission outcome. The
// transcript is present whenever transcription succeeded, regardless of
// what happened afterwards.
type voiceResponse struct {
	Transcript     string        `json:"transcript,omitempty"`
	RawModelOutput string        `json:"raw_model_output,omitempty"`
	RejectReason   string        `json:"reject_reason,omitempty"`
	Candidate      *candidateDTO `json:"candidate,omitempty"`
	Expense        *expenseDTO   `json:"expense,omitempty"`
	Error          string        `json:"error,omitempty"`
}

func (s *Server) handleVoiceExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	blob, err := audio.FromMultipart(r)
	if err != nil {
		switch {
		case errors.Is(err, audio.ErrAudioTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, audio.ErrUnsupportedMIME):
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	identity := identityFrom(ctx)
	if identity == nil {
		// Legacy clients send the user id as a form field instead of a
		// bearer token. FromMultipart already parsed the form.
		if uid := strings.TrimSpace(r.FormValue("user_id")); uid != "" {
			identity = &core.Identity{ID: uid}
		}
	}

	res, err := s.pipeline.Run(ctx, identity, blob)
	body := voiceResponse{
		Transcript:     res.Transcript,
		RawModelOutput: res.RawModelOutput,
	}
	if res.Candidate != nil {
		dto := candidateToDTO(*res.Candidate)
		body.Candidate = &dto
	}

	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrUnauthenticated):
			body.Error = "missing or invalid API token"
			writeJSON(w, http.StatusUnauthorized, body)
		case errors.Is(err, pipeline.ErrPersistence):
			logger.ErrorContext(ctx, "voice expense persistence failed",
				log.FieldError, err.Error())
			body.Error = "expense could not be saved"
			writeJSON(w, http.StatusInternalServerError, body)
		case errors.Is(err, transcribe.ErrTranscriptionFailed):
			logger.ErrorContext(ctx, "transcription failed",
				log.FieldError, err.Error())
			body.Error = "transcription service unavailable"
			writeJSON(w, http.StatusBadGateway, body)
		case errors.Is(err, extract.ErrExtractionService):
			logger.ErrorContext(ctx, "extraction failed",
				log.FieldError, err.Error())
			body.Error = "extraction service unavailable"
			writeJSON(w, http.StatusBadGateway, body)
		default:
			logger.ErrorContext(ctx, "voice pipeline failed",
				log.FieldError, err.Error())
			body.Error = "internal error"
			writeJSON(w, http.StatusInternalServerError, body)
		}
		return
	}

	if res.Rejected() {
		body.RejectReason = string(res.Reject)
		writeJSON(w, http.StatusUnprocessableEntity, body)
		return
	}

	if res.Expense != nil {
		dto := expenseToDTO(*res.Expense)
		body.Expense = &dto
	}
	writeJSON(w, http.StatusCreated, body)
}
