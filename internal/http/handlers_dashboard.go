package http

import (
	"net/http"

	"voicebudget/internal/log"
)

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	summary, err := s.summary.Summary(r.Context(), identity.ID)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "summary failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "summary could not be built")
		return
	}

	writeJSON(w, http.StatusOK, summaryToDTO(summary))
}
