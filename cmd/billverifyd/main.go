package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/buildsure/bill-verifier/internal/assess"
	"github.com/buildsure/bill-verifier/internal/budget"
	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/compliance"
	"github.com/buildsure/bill-verifier/internal/export"
	"github.com/buildsure/bill-verifier/internal/extract"
	"github.com/buildsure/bill-verifier/internal/gstin"
	"github.com/buildsure/bill-verifier/internal/reconcile"
	"github.com/buildsure/bill-verifier/internal/repository"
	"github.com/buildsure/bill-verifier/internal/risk"
	"github.com/buildsure/bill-verifier/internal/server"
	"github.com/buildsure/bill-verifier/internal/vendor"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, nil)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close(nil)

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("running migrations: %v", err)
	}
	if err := db.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
		log.Fatalf("database health check: %v", err)
	}
	log.Infow("database ready", "dsn", cfg.Database.DSN)

	bills := repository.NewBillRepository(db, nil)

	var registry gstin.RegistryClient
	if hr := gstin.NewHTTPRegistry(cfg.Registry, nil); hr != nil {
		registry = hr
		log.Infow("GSTIN registry configured", "endpoint", cfg.Registry.Endpoint)
	}
	validator := gstin.NewValidator(
		gstin.Config{NameMatchThreshold: cfg.Engine.NameMatchThreshold}, registry, nil)

	var extractor extract.InvoiceExtractor
	if cfg.DocIntel.Endpoint != "" && cfg.DocIntel.APIKey != "" {
		di, err := extract.NewDocIntelClient(cfg.DocIntel, nil)
		if err != nil {
			log.Fatalf("configuring extraction client: %v", err)
		}
		extractor = di
		log.Infow("document intelligence configured", "endpoint", cfg.DocIntel.Endpoint)
	} else {
		log.Infow("document intelligence not configured, analyze requires pre-parsed bills")
	}

	assessor := assess.NewService(
		reconcile.New(reconcile.ConfigFromTolerance(cfg.Engine.MoneyTolerance)),
		validator, risk.New(risk.DefaultWeights()), nil)

	complianceSvc := compliance.NewService(
		repository.NewComplianceRepository(db, nil),
		compliance.NewBillDuplicates(bills),
		nil,
	)
	if err := complianceSvc.Seed(ctx); err != nil {
		log.Fatalf("seeding compliance rules: %v", err)
	}

	srv := server.New(cfg, server.Deps{
		DB:         db,
		Bills:      bills,
		Extractor:  extractor,
		Assessor:   assessor,
		GSTIN:      validator,
		Budgets:    budget.NewService(repository.NewBudgetRepository(db, nil), nil),
		Vendors:    vendor.NewService(repository.NewVendorRepository(db, nil), nil),
		Compliance: complianceSvc,
		Exporter:   export.NewService(bills, nil),
	}, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv,
	}

	go func() {
		log.Infof("HTTP serving on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}
	log.Info("stopped.")
}
