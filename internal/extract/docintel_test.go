package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildsure/bill-verifier/internal/common"
)

func diField(kv ...any) map[string]any {
	m := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestMapAnalyzeResult(t *testing.T) {
	result := map[string]any{
		"documents": []any{
			map[string]any{
				"fields": map[string]any{
					"VendorName":   diField("valueString", "Sharma Constructions Pvt Ltd"),
					"InvoiceId":    diField("valueString", "INV-0042"),
					"InvoiceDate":  diField("valueDate", "2026-07-14"),
					"InvoiceTotal": diField("valueCurrency", map[string]any{"amount": 77000.0}),
					"Items": map[string]any{
						"valueArray": []any{
							map[string]any{
								"valueObject": map[string]any{
									"Description": diField("valueString", "Cement bags"),
									"Quantity":    diField("valueNumber", 200.0),
									"UnitPrice":   diField("valueCurrency", map[string]any{"amount": 385.0}),
									"Amount":      diField("valueCurrency", map[string]any{"amount": 77000.0}),
								},
							},
						},
					},
				},
			},
		},
	}

	parsed := mapAnalyzeResult(result)

	assert.Equal(t, "Sharma Constructions Pvt Ltd", parsed["vendor"])
	assert.Equal(t, "INV-0042", parsed["invoice_id"])
	assert.Equal(t, "2026-07-14", parsed["invoice_date"])
	assert.Equal(t, 77000.0, parsed["total_amount"])

	items, ok := parsed["line_items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "Cement bags", item["item"])
	assert.Equal(t, 200.0, item["qty"])
	assert.Equal(t, 385.0, item["rate"])
	assert.Equal(t, 77000.0, item["total"])

	// raw response retained for auditability
	assert.Equal(t, result, parsed["raw"])
}

func TestMapAnalyzeResultContentFallback(t *testing.T) {
	result := map[string]any{
		"documents": []any{
			map[string]any{
				"fields": map[string]any{
					"Vendor":    diField("content", "Gupta Steel"),
					"AmountDue": diField("content", "35,000"),
				},
			},
		},
	}

	parsed := mapAnalyzeResult(result)
	assert.Equal(t, "Gupta Steel", parsed["vendor"])
	assert.Equal(t, "35,000", parsed["total_amount"])
	assert.Empty(t, parsed["line_items"])
}

func TestMapAnalyzeResultEmpty(t *testing.T) {
	parsed := mapAnalyzeResult(nil)
	assert.Empty(t, parsed["line_items"])

	parsed = mapAnalyzeResult(map[string]any{"documents": []any{}})
	assert.NotContains(t, parsed, "vendor")
}

func TestDocIntelClientAnalyze(t *testing.T) {
	var polls atomic.Int32
	var srvURL string

	mux := http.NewServeMux()
	mux.HandleFunc("POST /formrecognizer/documentModels/prebuilt-invoice:analyze", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		w.Header().Set("Operation-Location", srvURL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if polls.Add(1) < 2 {
			_, _ = w.Write([]byte(`{"status":"running"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"status": "succeeded",
			"analyzeResult": {
				"documents": [{"fields": {"VendorName": {"valueString": "Acme Builders"}}}]
			}
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	dir := t.TempDir()
	path := filepath.Join(dir, "bill.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644))

	client, err := NewDocIntelClient(common.DocIntelConfig{
		Endpoint:     srv.URL,
		APIKey:       "key",
		PollInterval: 5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	parsed, err := client.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Acme Builders", parsed["vendor"])
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestDocIntelClientAnalyzeFailed(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /formrecognizer/documentModels/prebuilt-invoice:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", srvURL+"/operations/op-2")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failed"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	dir := t.TempDir()
	path := filepath.Join(dir, "bill.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	client, err := NewDocIntelClient(common.DocIntelConfig{
		Endpoint:     srv.URL,
		APIKey:       "key",
		PollInterval: 5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = client.Analyze(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed")
}

func TestNewDocIntelClientRequiresCredentials(t *testing.T) {
	_, err := NewDocIntelClient(common.DocIntelConfig{}, nil)
	require.Error(t, err)
}

func TestValidateParsedBill(t *testing.T) {
	good := []byte(`{
		"vendor": "Acme Builders",
		"total_amount": "35,000",
		"line_items": [{"item": "Cement", "qty": 100, "rate": "350", "total": 35000}]
	}`)
	assert.NoError(t, ValidateParsedBill(good))

	// vendor object form
	assert.NoError(t, ValidateParsedBill([]byte(`{"vendor": {"name": "Acme", "gstin": "x"}}`)))

	// line_items must be an array
	assert.Error(t, ValidateParsedBill([]byte(`{"line_items": {"item": "Cement"}}`)))

	// not JSON at all
	assert.Error(t, ValidateParsedBill([]byte(`not json`)))
}
