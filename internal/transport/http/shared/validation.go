package shared

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nomina/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field issues so a request reports all of them at once.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: strings.TrimSpace(field), Reason: reason})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

func (v *Validator) ID(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.Add(field, "is required")
		return
	}
	if _, err := uuid.Parse(value); err != nil {
		v.Add(field, "must be a valid id")
	}
}

func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range allowed {
		if normalized == strings.ToUpper(candidate) {
			return
		}
	}
	v.Add(field, reason)
}

func (v *Validator) Year(field string, year, minYear, maxYear int) {
	if year < minYear || year > maxYear {
		v.Add(field, "must be between "+strconv.Itoa(minYear)+" and "+strconv.Itoa(maxYear))
	}
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

// Time parses an optional RFC3339 timestamp; empty input yields nil.
func (v *Validator) Time(field, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		v.Add(field, "must be an RFC3339 timestamp")
		return nil
	}
	return &parsed
}

// Hours parses an optional non-negative decimal hour count.
func (v *Validator) Hours(field string, raw *string) decimal.NullDecimal {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.NullDecimal{}
	}
	parsed, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil || parsed.IsNegative() {
		v.Add(field, "must be a non-negative number")
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(parsed)
}

func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() {
		return
	}
	if end.Before(start) {
		v.Add(startField, "must be on or before "+endField)
		v.Add(endField, "must be on or after "+startField)
	}
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed", map[string]any{"fields": issues}, requestID)
}
