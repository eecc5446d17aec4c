package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/buildsure/bill-verifier/constants"
	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/entity"
)

// 25 MB cap on uploaded bills.
const maxUploadBytes = 25 << 20

func (s *Server) handleUploadBill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, r, common.InvalidInputf("parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("file field is required"))
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if !constants.AllowedExt(ext) {
		s.respondError(w, r, common.InvalidInputf("unsupported file type %q", ext))
		return
	}

	project := r.FormValue("project")
	if project == "" {
		s.respondError(w, r, common.InvalidInputf("project field is required"))
		return
	}
	tenant := r.FormValue("tenant")
	if tenant == "" {
		tenant = "default"
	}

	id := uuid.New()
	if err := os.MkdirAll(s.cfg.Storage.BillsDir, 0o755); err != nil {
		s.respondError(w, r, fmt.Errorf("create bills dir: %w", err))
		return
	}
	dstPath := filepath.Join(s.cfg.Storage.BillsDir, id.String()+"."+constants.NormalizeExt(ext))
	dst, err := os.Create(dstPath)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("store bill file: %w", err))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(dstPath)
		s.respondError(w, r, fmt.Errorf("store bill file: %w", err))
		return
	}
	if err := dst.Close(); err != nil {
		s.respondError(w, r, fmt.Errorf("store bill file: %w", err))
		return
	}

	bill := &entity.Bill{
		ID:       id,
		Tenant:   tenant,
		Project:  project,
		Filename: header.Filename,
		FilePath: dstPath,
		Status:   constants.BillStatusUploaded,
	}
	if err := s.deps.Bills.Create(r.Context(), bill); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.logger.Info("bill uploaded",
		zap.String("bill_id", id.String()),
		zap.String("project", project),
		zap.String("filename", header.Filename),
	)
	respondJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.deps.Bills.List(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "billID"))
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("billID must be a UUID"))
		return
	}
	bill, err := s.deps.Bills.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

// handleAnalyzeBill runs the full pipeline for one bill: extract fields
// when not yet parsed, reconcile arithmetic, validate the GSTIN, and store
// the fused assessment. Re-running on an analysed bill re-assesses the
// stored parsed payload without calling the extraction service again.
func (s *Server) handleAnalyzeBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "billID"))
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("billID must be a UUID"))
		return
	}
	bill, err := s.deps.Bills.GetByID(ctx, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var parsed map[string]any
	if len(bill.Parsed) > 0 {
		if err := json.Unmarshal(bill.Parsed, &parsed); err != nil {
			s.respondError(w, r, fmt.Errorf("decode stored payload: %w", err))
			return
		}
	} else {
		if s.deps.Extractor == nil {
			respondJSON(w, http.StatusServiceUnavailable,
				map[string]string{"error": "extraction service is not configured"})
			return
		}
		parsed, err = s.deps.Extractor.Analyze(ctx, bill.FilePath)
		if err != nil {
			_ = s.deps.Bills.UpdateStatus(ctx, id, constants.BillStatusFailed)
			s.respondError(w, r, fmt.Errorf("extract bill fields: %w", err))
			return
		}
		raw, err := json.Marshal(parsed)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("encode parsed payload: %w", err))
			return
		}
		if err := s.deps.Bills.SetParsed(ctx, id, raw, constants.BillStatusParsed); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	validation, assessment := s.deps.Assessor.Assess(ctx, parsed)
	result := &entity.BillResult{
		BillID:           id.String(),
		Parsed:           parsed,
		Validations:      validation,
		FraudScore:       assessment.Score,
		FraudExplanation: assessment.Explanation,
		Status:           "assessed",
	}
	if err := s.deps.Bills.SetResult(ctx, id, result); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetBillResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "billID"))
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("billID must be a UUID"))
		return
	}
	result, err := s.deps.Bills.GetResult(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if result == nil {
		s.respondError(w, r, common.NotFoundf("bill %s has not been analysed", id))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportBills(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Exporter.ExportBillsXLSX(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bills.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
