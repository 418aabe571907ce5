package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"voicebudget/internal/core"
	"voicebudget/internal/log"
	"voicebudget/internal/storage"
)

type budgetRequest struct {
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Period      string `json:"period"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	budget := core.Budget{
		UserID:   identity.ID,
		Category: core.Category(req.Category),
		Amount:   core.Money{Cents: req.AmountCents},
		Period:   core.BudgetPeriod(req.Period),
	}
	if err := budget.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.budgets.CreateBudget(r.Context(), budget)
	if isUniqueViolation(err) {
		writeError(w, http.StatusConflict, "budget already exists for this category")
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "create budget failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "budget could not be saved")
		return
	}

	s.summary.Invalidate(identity.ID)
	writeJSON(w, http.StatusCreated, budgetToDTO(saved))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	amount := core.Money{Cents: req.AmountCents}
	period := core.BudgetPeriod(req.Period)
	if err := amount.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !period.Valid() {
		writeError(w, http.StatusUnprocessableEntity, core.ErrInvalidPeriod.Error())
		return
	}

	err := s.budgets.UpdateBudget(r.Context(), r.PathValue("id"), identity.ID, amount, period)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "budget not found")
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "update budget failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "budget could not be updated")
		return
	}

	s.summary.Invalidate(identity.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	err := s.budgets.DeleteBudget(r.Context(), r.PathValue("id"), identity.ID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "budget not found")
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "delete budget failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "budget could not be deleted")
		return
	}

	s.summary.Invalidate(identity.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	budgets, err := s.budgets.ListBudgets(r.Context(), identity.ID)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "list budgets failed",
			log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "budgets could not be listed")
		return
	}

	out := make([]budgetDTO, len(budgets))
	for i, b := range budgets {
		out[i] = budgetToDTO(b)
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": out})
}
