package server

import (
	"encoding/json"
	"net/http"

	"github.com/buildsure/bill-verifier/internal/common"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// decodeJSON strictly decodes a request body into dst, mapping failures to
// the invalid-input error class.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.InvalidInputf("invalid request body: %v", err)
	}
	return nil
}
