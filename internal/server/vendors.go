package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/vendor"
)

func (s *Server) handleAddVendorTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VendorName     string  `json:"vendor_name"`
		ProjectID      string  `json:"project_id"`
		Amount         float64 `json:"amount"`
		Category       string  `json:"category"`
		QualityRating  *int    `json:"quality_rating"`
		DeliveryRating *int    `json:"delivery_rating"`
		Notes          string  `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := s.deps.Vendors.AddTransaction(r.Context(), vendor.AddTransactionRequest{
		VendorName:     req.VendorName,
		ProjectID:      req.ProjectID,
		Amount:         req.Amount,
		Category:       req.Category,
		QualityRating:  req.QualityRating,
		DeliveryRating: req.DeliveryRating,
		Notes:          req.Notes,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": id})
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentDate string `json:"payment_date"` // YYYY-MM-DD, empty means now
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	var when *time.Time
	if req.PaymentDate != "" {
		t, err := time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			s.respondError(w, r, common.InvalidInputf("payment_date must be YYYY-MM-DD"))
			return
		}
		when = &t
	}
	if err := s.deps.Vendors.MarkPaid(r.Context(), chi.URLParam(r, "transactionID"), when); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (s *Server) handleVendorPerformance(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "vendorName"))
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("invalid vendor name"))
		return
	}
	perf, err := s.deps.Vendors.Performance(r.Context(), name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, perf)
}

func (s *Server) handleTopVendors(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}
	top, err := s.deps.Vendors.TopVendors(r.Context(), limit, r.URL.Query().Get("sort_by"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"vendors": top})
}

func (s *Server) handleRecommendVendors(w http.ResponseWriter, r *http.Request) {
	budget, err := strconv.ParseFloat(r.URL.Query().Get("budget"), 64)
	if err != nil {
		s.respondError(w, r, common.InvalidInputf("budget query parameter must be a number"))
		return
	}
	recs, err := s.deps.Vendors.Recommend(r.Context(), r.URL.Query().Get("category"), budget)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}
