package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/extract"
)

// handleAssess assesses a caller-supplied parsed payload without storing
// anything. The payload is schema-checked first so obviously malformed
// input fails fast instead of producing a meaningless zero score.
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("read request body: %v", err))
		return
	}
	if err := extract.ValidateParsedBill(body); err != nil {
		s.respondError(w, r, common.InvalidInputf("payload does not look like a parsed bill: %v", err))
		return
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		s.respondError(w, r, common.InvalidInputf("invalid request body: %v", err))
		return
	}

	validation, assessment := s.deps.Assessor.Assess(r.Context(), parsed)
	respondJSON(w, http.StatusOK, map[string]any{
		"validations":       validation,
		"fraud_score":       assessment.Score,
		"fraud_explanation": assessment.Explanation,
		"reasons":           assessment.Reasons,
	})
}

func (s *Server) handleValidateGSTIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GSTIN      string `json:"gstin"`
		VendorName string `json:"vendor_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.GSTIN) == "" {
		s.respondError(w, r, common.InvalidInputf("gstin is required"))
		return
	}
	respondJSON(w, http.StatusOK, s.deps.GSTIN.Validate(r.Context(), req.GSTIN, req.VendorName))
}
