// Package server exposes the verification engine over HTTP: bill upload
// and analysis, standalone assessment, GSTIN checks, budgets, vendor
// analytics, and compliance.
package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/buildsure/bill-verifier/internal/assess"
	"github.com/buildsure/bill-verifier/internal/budget"
	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/compliance"
	"github.com/buildsure/bill-verifier/internal/export"
	"github.com/buildsure/bill-verifier/internal/extract"
	"github.com/buildsure/bill-verifier/internal/gstin"
	"github.com/buildsure/bill-verifier/internal/repository"
	"github.com/buildsure/bill-verifier/internal/vendor"
)

// Deps bundles the wired services the HTTP layer fronts. Extractor may be
// nil when no document-intelligence credentials are configured; the analyze
// endpoint then only works for bills that already carry a parsed payload.
type Deps struct {
	DB         *repository.DB
	Bills      repository.BillRepository
	Extractor  extract.InvoiceExtractor
	Assessor   *assess.Service
	GSTIN      *gstin.Validator
	Budgets    *budget.Service
	Vendors    *vendor.Service
	Compliance *compliance.Service
	Exporter   *export.Service
}

type Server struct {
	cfg    *common.Config
	deps   Deps
	logger *zap.Logger
	router *chi.Mux
}

func New(cfg *common.Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	r.Get("/api/v1/health", s.handleHealth)

	r.Route("/api/v1/bills", func(r chi.Router) {
		r.Post("/", s.handleUploadBill)
		r.Get("/", s.handleListBills)
		r.Get("/export", s.handleExportBills)

		r.Route("/{billID}", func(r chi.Router) {
			r.Get("/", s.handleGetBill)
			r.Post("/analyze", s.handleAnalyzeBill)
			r.Get("/result", s.handleGetBillResult)
		})
	})

	r.Post("/api/v1/assess", s.handleAssess)
	r.Post("/api/v1/gstin/validate", s.handleValidateGSTIN)

	r.Route("/api/v1/budgets", func(r chi.Router) {
		r.Post("/", s.handleCreateBudget)
		r.Route("/{projectID}", func(r chi.Router) {
			r.Post("/expenses", s.handleAddExpense)
			r.Get("/summary", s.handleBudgetSummary)
			r.Get("/alerts", s.handleBudgetAlerts)
		})
	})

	r.Route("/api/v1/vendors", func(r chi.Router) {
		r.Post("/transactions", s.handleAddVendorTransaction)
		r.Post("/transactions/{transactionID}/payment", s.handleMarkPaid)
		r.Get("/top", s.handleTopVendors)
		r.Get("/recommendations", s.handleRecommendVendors)
		r.Get("/{vendorName}/performance", s.handleVendorPerformance)
	})

	r.Route("/api/v1/compliance", func(r chi.Router) {
		r.Post("/checks", s.handleRunCompliance)
		r.Get("/checks", s.handleListComplianceChecks)
		r.Get("/rules", s.handleListComplianceRules)
		r.Get("/report", s.handleComplianceReport)
		r.Patch("/rules/{ruleID}", s.handleSetRuleActive)
		r.Get("/violations", s.handleListViolations)
		r.Post("/violations/{violationID}/resolve", s.handleResolveViolation)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.DB.HealthCheck(r.Context(), s.cfg.Database.DialTimeout); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as a bare 500 to avoid leaking internals.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		respondJSON(w, http.StatusBadRequest, errBody(err))
	case errors.Is(err, common.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errBody(err))
	case errors.Is(err, common.ErrConflict):
		respondJSON(w, http.StatusConflict, errBody(err))
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err),
		)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func errBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
