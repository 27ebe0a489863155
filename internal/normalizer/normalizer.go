// Package normalizer converts operator text input into a TelemetryPayload.
//
// Only syntax is checked here. Whether a latitude of 95 makes sense is the
// prediction service's call; Advisories reports such values without blocking.
package normalizer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"NavGuard/internal/domain/models"

	"github.com/shopspring/decimal"
)

const (
	ReasonRequired   = "required"
	ReasonNotNumeric = "must be a decimal number"
	ReasonNotFinite  = "must be a finite number"
)

type numericField struct {
	name string
	raw  func(models.TelemetryInput) string
	dst  func(*models.TelemetryPayload) *float64
}

// fields is in form order so errors come out the way the panel lists them.
var fields = []numericField{
	{models.FieldMMSI, func(in models.TelemetryInput) string { return in.MMSI }, func(p *models.TelemetryPayload) *float64 { return &p.MMSI }},
	{models.FieldLatitude, func(in models.TelemetryInput) string { return in.Latitude }, func(p *models.TelemetryPayload) *float64 { return &p.Latitude }},
	{models.FieldLongitude, func(in models.TelemetryInput) string { return in.Longitude }, func(p *models.TelemetryPayload) *float64 { return &p.Longitude }},
	{models.FieldSOG, func(in models.TelemetryInput) string { return in.SOG }, func(p *models.TelemetryPayload) *float64 { return &p.SOG }},
	{models.FieldCOG, func(in models.TelemetryInput) string { return in.COG }, func(p *models.TelemetryPayload) *float64 { return &p.COG }},
	{models.FieldHeading, func(in models.TelemetryInput) string { return in.Heading }, func(p *models.TelemetryPayload) *float64 { return &p.Heading }},
}

// Normalize validates raw and returns the payload to submit. On failure the
// error is a models.ValidationErrors naming every rejected field.
func Normalize(raw models.TelemetryInput) (models.TelemetryPayload, error) {
	var (
		p    = models.TelemetryPayload{Timestamp: raw.Timestamp}
		errs models.ValidationErrors
	)

	if strings.TrimSpace(raw.Timestamp) == "" {
		errs = append(errs, models.ValidationError{Field: models.FieldTimestamp, Value: raw.Timestamp, Reason: ReasonRequired})
	}

	for _, f := range fields {
		text := f.raw(raw)
		v, reason := parseDecimal(text)
		if reason != "" {
			errs = append(errs, models.ValidationError{Field: f.name, Value: text, Reason: reason})
			continue
		}
		*f.dst(&p) = v
	}

	if len(errs) > 0 {
		return models.TelemetryPayload{}, errs
	}
	return p, nil
}

// parseDecimal accepts plain decimal notation with an optional exponent.
// decimal decides the syntax, so NaN, Inf and hex floats are rejected even
// though strconv would take them. The conversion itself goes through strconv,
// which runs in constant time whatever the exponent.
func parseDecimal(text string) (float64, string) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ReasonRequired
	}
	if _, err := decimal.NewFromString(s); err != nil {
		return 0, ReasonNotNumeric
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, ReasonNotNumeric
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ReasonNotFinite
	}
	return f, ""
}

// Advisory flags a value the service will likely consider out of domain.
type Advisory struct {
	Field   string  `json:"field"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// Advisories lists out-of-range values in p. It never blocks a submission.
func Advisories(p models.TelemetryPayload) []Advisory {
	var out []Advisory
	check := func(field string, v float64, ok bool, bounds string) {
		if !ok {
			out = append(out, Advisory{Field: field, Value: v, Message: fmt.Sprintf("%s is outside %s", field, bounds)})
		}
	}
	check(models.FieldLatitude, p.Latitude, p.Latitude >= -90 && p.Latitude <= 90, "[-90, 90]")
	check(models.FieldLongitude, p.Longitude, p.Longitude >= -180 && p.Longitude <= 180, "[-180, 180]")
	check(models.FieldSOG, p.SOG, p.SOG >= 0, "[0, +inf)")
	check(models.FieldCOG, p.COG, p.COG >= 0 && p.COG < 360, "[0, 360)")
	check(models.FieldHeading, p.Heading, p.Heading >= 0 && p.Heading < 360, "[0, 360)")
	return out
}
