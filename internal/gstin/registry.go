package gstin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/buildsure/bill-verifier/internal/common"
)

// RegistryClient looks a GSTIN up in an external registry. A 200 response is
// returned verbatim as a generic mapping; everything else is an error the
// validator downgrades to a diagnostic note.
type RegistryClient interface {
	Lookup(ctx context.Context, gstin string) (map[string]any, error)
}

// StatusError is returned for non-2xx registry responses so callers can
// report the status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry status %d", e.StatusCode)
}

// HTTPRegistry talks to a registry of the form GET {endpoint}/{gstin} with an
// optional bearer credential.
type HTTPRegistry struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPRegistry builds a registry client. Returns nil when no endpoint is
// configured; the validator treats a nil client as "no external check".
func NewHTTPRegistry(cfg common.RegistryConfig, logger *slog.Logger) *HTTPRegistry {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPRegistry{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (r *HTTPRegistry) Lookup(ctx context.Context, gstin string) (map[string]any, error) {
	url := r.endpoint + "/" + gstin
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	r.logger.Info("gstin.registry.request", "gstin", gstin)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("gstin.registry.send_error", "gstin", gstin, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			r.logger.Warn("gstin.registry.body_close_error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	r.logger.Info("gstin.registry.response",
		"gstin", gstin,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		// non-JSON body from a 200 is still a usable payload
		payload = map[string]any{"raw": string(raw)}
	}
	return payload, nil
}
