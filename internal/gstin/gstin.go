// Package gstin validates Goods and Services Tax Identification Numbers:
// a structural grammar check, an optional external-registry lookup, and an
// optional fuzzy match of the registered business name against the vendor
// name on the invoice.
//
// Validation never fails hard. A registry outage, a timeout, or a malformed
// input all degrade to diagnostic notes on the result.
package gstin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/buildsure/bill-verifier/internal/entity"
)

// 2-digit state code + PAN-like segment (5 letters, 4 digits, 1 letter) +
// entity code + literal Z + checksum character. The checksum digit is not
// algorithmically verified; a note flags that on every grammar match.
var gstinPattern = regexp.MustCompile(`^(\d{2})([A-Z]{5}\d{4}[A-Z])([A-Z0-9])Z([A-Z0-9])$`)

const (
	noteLength   = "GSTIN must be 15 characters long"
	notePattern  = "GSTIN does not match expected pattern (state+PAN+entity+Z+checksum)"
	noteChecksum = "checksum_not_validated"

	stateCodeMin = 1
	stateCodeMax = 37

	defaultNameThreshold = 0.70
)

// Config holds validator thresholds.
type Config struct {
	// NameMatchThreshold is the similarity ratio at or above which the
	// vendor name and the registered business name count as a match.
	NameMatchThreshold float64
}

// DefaultConfig returns the reference threshold of 0.70.
func DefaultConfig() Config {
	return Config{NameMatchThreshold: defaultNameThreshold}
}

// Validator validates GSTINs. registry may be nil, in which case the
// external check is skipped entirely.
type Validator struct {
	cfg      Config
	registry RegistryClient
	logger   *slog.Logger
}

func NewValidator(cfg Config, registry RegistryClient, logger *slog.Logger) *Validator {
	if cfg.NameMatchThreshold <= 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{cfg: cfg, registry: registry, logger: logger}
}

// Validate runs the full check sequence for one GSTIN. vendorName may be
// empty; the name match only runs when both a vendor name and a registry
// payload are available.
func (v *Validator) Validate(ctx context.Context, gstin, vendorName string) *entity.GSTINValidation {
	gst := strings.ToUpper(strings.TrimSpace(gstin))
	res := &entity.GSTINValidation{GSTIN: gst, Notes: []string{}}

	if len(gst) != 15 {
		res.Notes = append(res.Notes, noteLength)
		return res
	}

	m := gstinPattern.FindStringSubmatch(gst)
	if m == nil {
		res.Notes = append(res.Notes, notePattern)
		return res
	}

	res.ValidFormat = true
	state, _ := strconv.Atoi(m[1])
	if state >= stateCodeMin && state <= stateCodeMax {
		res.StateCodeOK = true
	} else {
		res.Notes = append(res.Notes, fmt.Sprintf("State code %d out of expected range 01-37", state))
	}
	res.Notes = append(res.Notes, noteChecksum)

	v.externalCheck(ctx, gst, res)

	if vendorName != "" && res.ExternalCheck != nil {
		if found, ok := candidateName(res.ExternalCheck); ok {
			ratio := similarity(vendorName, found)
			res.BusinessNameMatch = &entity.NameMatch{
				FoundName:  found,
				Similarity: round3(ratio),
				Match:      ratio >= v.cfg.NameMatchThreshold,
			}
		}
	}

	return res
}

// externalCheck performs the registry lookup when one is configured. Any
// failure is recorded as a note; the validation proceeds regardless.
func (v *Validator) externalCheck(ctx context.Context, gst string, res *entity.GSTINValidation) {
	if v.registry == nil {
		return
	}

	payload, err := v.registry.Lookup(ctx, gst)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			res.Notes = append(res.Notes, fmt.Sprintf("external_service_error:%d", se.StatusCode))
		} else {
			res.Notes = append(res.Notes, fmt.Sprintf("external_check_error:%v", err))
		}
		v.logger.Warn("gstin.external_check_failed", "gstin", gst, "error", err)
		return
	}
	res.ExternalCheck = payload
}
