package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/compliance"
)

type complianceCheckRequest struct {
	ProjectID       string                `json:"project_id"`
	TransactionID   string                `json:"transaction_id"`
	VendorGSTIN     string                `json:"vendor_gstin"`
	VendorName      string                `json:"vendor_name"`
	InvoiceNumber   string                `json:"invoice_number"`
	Amount          float64               `json:"amount"`
	TDSDeducted     float64               `json:"tds_deducted"`
	Category        string                `json:"category"`
	TransactionDate string                `json:"transaction_date"` // YYYY-MM-DD
	PaymentDate     string                `json:"payment_date"`     // YYYY-MM-DD
	Documents       []compliance.Document `json:"documents"`
	AuditTrail      []map[string]any      `json:"audit_trail"`
}

func (s *Server) handleRunCompliance(w http.ResponseWriter, r *http.Request) {
	var req complianceCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	txnDate, err := parseOptionalDate(req.TransactionDate)
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("transaction_date must be YYYY-MM-DD"))
		return
	}
	payDate, err := parseOptionalDate(req.PaymentDate)
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("payment_date must be YYYY-MM-DD"))
		return
	}

	check, violations, err := s.deps.Compliance.Run(r.Context(), compliance.TransactionData{
		ID:              req.TransactionID,
		VendorGSTIN:     req.VendorGSTIN,
		VendorName:      req.VendorName,
		InvoiceNumber:   req.InvoiceNumber,
		Amount:          req.Amount,
		TDSDeducted:     req.TDSDeducted,
		Category:        req.Category,
		TransactionDate: txnDate,
		PaymentDate:     payDate,
		Documents:       req.Documents,
		AuditTrail:      req.AuditTrail,
	}, req.ProjectID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"check":      check,
		"violations": violations,
	})
}

func (s *Server) handleListComplianceRules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	rules, err := s.deps.Compliance.Rules(r.Context(), activeOnly)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (s *Server) handleSetRuleActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.deps.Compliance.SetRuleActive(r.Context(), chi.URLParam(r, "ruleID"), req.Active); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rule_id": chi.URLParam(r, "ruleID"), "active": req.Active})
}

func (s *Server) handleListViolations(w http.ResponseWriter, r *http.Request) {
	violations, err := s.deps.Compliance.Violations(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"violations": violations})
}

func (s *Server) handleResolveViolation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "violationID"))
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("violationID must be a UUID"))
		return
	}
	var req struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	status := req.Status
	if status == "" {
		status = "resolved"
	}
	if err := s.deps.Compliance.Resolve(r.Context(), id, status, req.Notes); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"violation_id": id.String(), "status": status})
}

func (s *Server) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, r, common.InvalidInputf("days must be a positive integer"))
			return
		}
		days = n
	}
	report, err := s.deps.Compliance.Report(r.Context(), r.URL.Query().Get("project_id"), days)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleListComplianceChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := s.deps.Compliance.Checks(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"checks": checks})
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
