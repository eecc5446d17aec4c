// billcheck assesses a parsed bill JSON file offline and prints the
// validation and fraud-risk result as JSON. No database or network access
// unless a GSTIN registry endpoint is configured.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/buildsure/bill-verifier/internal/assess"
	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/extract"
	"github.com/buildsure/bill-verifier/internal/gstin"
	"github.com/buildsure/bill-verifier/internal/reconcile"
	"github.com/buildsure/bill-verifier/internal/risk"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "billcheck <parsed-bill.json>")
		os.Exit(2)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read input", "path", os.Args[1], "error", err)
		os.Exit(1)
	}
	if err := extract.ValidateParsedBill(data); err != nil {
		logger.Error("input is not a parsed bill", "error", err)
		os.Exit(1)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.Error("decode input", "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()

	var registry gstin.RegistryClient
	if hr := gstin.NewHTTPRegistry(cfg.Registry, logger); hr != nil {
		registry = hr
	}
	validator := gstin.NewValidator(
		gstin.Config{NameMatchThreshold: cfg.Engine.NameMatchThreshold}, registry, logger)
	assessor := assess.NewService(
		reconcile.New(reconcile.ConfigFromTolerance(cfg.Engine.MoneyTolerance)),
		validator, risk.New(risk.DefaultWeights()), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	validation, assessment := assessor.Assess(ctx, parsed)

	out := map[string]any{
		"validations":       validation,
		"fraud_score":       assessment.Score,
		"fraud_explanation": assessment.Explanation,
		"reasons":           assessment.Reasons,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode output", "error", err)
		os.Exit(1)
	}
}
