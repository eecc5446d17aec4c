package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buildsure/bill-verifier/internal/common"
)

const (
	analyzePath = "/formrecognizer/documentModels/prebuilt-invoice:analyze?api-version=2023-07-31"

	defaultTimeout      = 90 * time.Second
	defaultPollInterval = 2 * time.Second
)

// DocIntelClient extracts invoice fields through the Azure Document
// Intelligence prebuilt-invoice model: submit the document, then poll the
// returned operation until it succeeds.
type DocIntelClient struct {
	endpoint     string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewDocIntelClient builds the extraction client. Returns an error when the
// endpoint or key is missing; extraction is not optional the way the
// registry check is.
func NewDocIntelClient(cfg common.DocIntelConfig, logger *slog.Logger) (*DocIntelClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.NewAppError("INVALID_INPUT",
			"DOCUMENT_INTELLIGENCE_ENDPOINT and DOCUMENT_INTELLIGENCE_KEY must be set", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &DocIntelClient{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		client:       &http.Client{Timeout: timeout},
		pollInterval: poll,
		logger:       logger,
	}, nil
}

// Analyze submits the file and polls until the analysis completes, then maps
// the provider fields onto the generic parsed payload.
func (c *DocIntelClient) Analyze(ctx context.Context, path string) (map[string]any, error) {
	opURL, err := c.submit(ctx, path)
	if err != nil {
		return nil, err
	}
	result, err := c.poll(ctx, opURL)
	if err != nil {
		return nil, err
	}
	return mapAnalyzeResult(result), nil
}

func (c *DocIntelClient) submit(ctx context.Context, path string) (string, error) {
	reqID := uuid.New().String()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read bill file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+analyzePath, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	c.logger.Info("extract.docintel.submit", "req_id", reqID, "path", path, "bytes", len(data))

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("extract.docintel.submit_error", "req_id", reqID, "error", err)
		return "", err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("extract.docintel.body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("analyze submit: non-202 status: %d", resp.StatusCode)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("analyze submit: missing Operation-Location header")
	}
	return opURL, nil
}

func (c *DocIntelClient) poll(ctx context.Context, opURL string) (map[string]any, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		body, err := c.fetchOperation(ctx, opURL)
		if err != nil {
			return nil, err
		}

		status, _ := body["status"].(string)
		switch status {
		case "succeeded":
			result, _ := body["analyzeResult"].(map[string]any)
			return result, nil
		case "failed":
			return nil, fmt.Errorf("document analysis failed")
		}
		// notStarted / running: keep polling
	}
}

func (c *DocIntelClient) fetchOperation(ctx context.Context, opURL string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("extract.docintel.body_close_error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyze poll: non-200 status: %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return body, nil
}

// Provider field names vary across model versions; each candidate list is
// tried in order.
var (
	diVendorFields  = []string{"VendorName", "Vendor", "SellerName"}
	diIDFields      = []string{"InvoiceId", "InvoiceNumber"}
	diTotalFields   = []string{"InvoiceTotal", "AmountDue"}
	diItemDescKeys  = []string{"Description", "Item", "Name"}
	diItemQtyKeys   = []string{"Quantity"}
	diItemRateKeys  = []string{"UnitPrice", "Price"}
	diItemTotalKeys = []string{"Amount", "TotalPrice"}
)

// mapAnalyzeResult flattens the provider response into the generic parsed
// payload. The raw result rides along for auditability; mapping failures
// degrade to an empty line_items list.
func mapAnalyzeResult(result map[string]any) map[string]any {
	parsed := map[string]any{"raw": result, "line_items": []any{}}
	if result == nil {
		return parsed
	}

	docs, _ := result["documents"].([]any)
	if len(docs) == 0 {
		return parsed
	}
	doc, _ := docs[0].(map[string]any)
	docFields, _ := doc["fields"].(map[string]any)
	if docFields == nil {
		return parsed
	}

	if v, ok := firstFieldValue(docFields, diVendorFields); ok {
		parsed["vendor"] = v
	}
	if v, ok := firstFieldValue(docFields, diIDFields); ok {
		parsed["invoice_id"] = v
	}
	if v, ok := firstFieldValue(docFields, []string{"InvoiceDate"}); ok {
		parsed["invoice_date"] = v
	}
	if v, ok := firstFieldValue(docFields, diTotalFields); ok {
		parsed["total_amount"] = v
	}
	if v, ok := firstFieldValue(docFields, []string{"TotalTax"}); ok {
		parsed["taxes"] = v
	}

	itemsField, ok := docFields["Items"].(map[string]any)
	if !ok {
		itemsField, _ = docFields["InvoiceItems"].(map[string]any)
	}
	if itemsField != nil {
		if rows, ok := itemsField["valueArray"].([]any); ok {
			items := make([]any, 0, len(rows))
			for _, raw := range rows {
				row, _ := raw.(map[string]any)
				obj, _ := row["valueObject"].(map[string]any)
				if obj == nil {
					continue
				}
				item := map[string]any{}
				if v, ok := firstFieldValue(obj, diItemDescKeys); ok {
					item["item"] = v
				}
				if v, ok := firstFieldValue(obj, diItemQtyKeys); ok {
					item["qty"] = v
				}
				if v, ok := firstFieldValue(obj, diItemRateKeys); ok {
					item["rate"] = v
				}
				if v, ok := firstFieldValue(obj, diItemTotalKeys); ok {
					item["total"] = v
				}
				items = append(items, item)
			}
			parsed["line_items"] = items
		}
	}

	return parsed
}

func firstFieldValue(fields map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		f, ok := fields[k].(map[string]any)
		if !ok {
			continue
		}
		if v, ok := fieldValue(f); ok {
			return v, true
		}
	}
	return nil, false
}

// fieldValue unwraps a typed provider field: currency amounts, numbers,
// strings, dates, falling back to the raw content text.
func fieldValue(f map[string]any) (any, bool) {
	if cur, ok := f["valueCurrency"].(map[string]any); ok {
		if amt, ok := cur["amount"].(float64); ok {
			return amt, true
		}
	}
	if n, ok := f["valueNumber"].(float64); ok {
		return n, true
	}
	if s, ok := f["valueString"].(string); ok && s != "" {
		return s, true
	}
	if s, ok := f["valueDate"].(string); ok && s != "" {
		return s, true
	}
	if s, ok := f["content"].(string); ok && s != "" {
		return s, true
	}
	return nil, false
}
