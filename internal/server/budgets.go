package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID   string             `json:"project_id"`
		TotalBudget float64            `json:"total_budget"`
		Allocations map[string]float64 `json:"allocations"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	b, err := s.deps.Budgets.Create(r.Context(), req.ProjectID, req.TotalBudget, req.Allocations)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	result, err := s.deps.Budgets.AddExpense(r.Context(), chi.URLParam(r, "projectID"), req.Category, req.Amount)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Budgets.Summary(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	days := 0
	if d := r.URL.Query().Get("days"); d != "" {
		days, _ = strconv.Atoi(d)
	}
	alerts, err := s.deps.Budgets.Alerts(r.Context(), chi.URLParam(r, "projectID"), days)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}
