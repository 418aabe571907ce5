package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"voicebudget/internal/core"
	"voicebudget/internal/log"
	"voicebudget/internal/storage"
)

type createExpenseRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Description string `json:"description"`
	SpentAt     string `json:"spent_at"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	spentAt, err := parseSpentAt(req.SpentAt, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	expense := core.Expense{
		UserID:      identity.ID,
		Amount:      core.Money{Cents: req.AmountCents},
		Category:    core.Category(req.Category),
		Description: sanitizeInput(req.Description),
		SpentAt:     spentAt,
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.expenses.CreateExpense(r.Context(), expense)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "create expense failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "expense could not be saved")
		return
	}

	writeJSON(w, http.StatusCreated, expenseToDTO(saved))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	spentAt, err := parseSpentAt(req.SpentAt, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	expense := core.Expense{
		ID:          r.PathValue("id"),
		UserID:      identity.ID,
		Amount:      core.Money{Cents: req.AmountCents},
		Category:    core.Category(req.Category),
		Description: sanitizeInput(req.Description),
		SpentAt:     spentAt,
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.expenses.UpdateExpense(r.Context(), expense)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "update expense failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "expense could not be updated")
		return
	}

	writeJSON(w, http.StatusOK, expenseToDTO(saved))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	limit := queryInt64(r, "limit", 100)
	offset := queryInt64(r, "offset", 0)

	expenses, err := s.reader.ListExpenses(r.Context(), identity.ID, limit, offset)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "list expenses failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "expenses could not be listed")
		return
	}

	out := make([]expenseDTO, len(expenses))
	for i, e := range expenses {
		out[i] = expenseToDTO(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	expense, err := s.reader.GetExpense(r.Context(), r.PathValue("id"), identity.ID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "get expense failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "expense could not be loaded")
		return
	}

	writeJSON(w, http.StatusOK, expenseToDTO(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	err := s.expenses.DeleteExpense(r.Context(), r.PathValue("id"), identity.ID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "delete expense failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "expense could not be deleted")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	data, err := s.exporter.ExportExpensesXLSX(r.Context(), identity.ID)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "export failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "export could not be generated")
		return
	}

	filename := fmt.Sprintf("expenses-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
