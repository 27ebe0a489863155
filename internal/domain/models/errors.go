package models

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindTimeout    ErrorKind = "timeout"
	KindCancelled  ErrorKind = "cancelled"
	KindTransport  ErrorKind = "transport"
	KindService    ErrorKind = "service"
)

const (
	MessageTimeout   = "Request timed out (15s). The backend is likely waking up or unreachable. Please try again."
	MessageTransport = "Analysis failed. Please check your connection."
	MessageCancelled = "Analysis superseded by a newer submission."
)

// ValidationError names one input field that could not be normalized.
type ValidationError struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationErrors holds every rejected field in form order.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return "invalid telemetry: " + strings.Join(parts, "; ")
}

// Fields lists the offending field names.
func (e ValidationErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, fe := range e {
		out = append(out, fe.Field)
	}
	return out
}

// Has reports whether field was rejected.
func (e ValidationErrors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// ServiceError is a structured error body returned by the prediction service.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("prediction service returned %d: %s", e.StatusCode, e.Detail)
}

// AnalysisError is the classified failure of one submission.
type AnalysisError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
	Err    error     `json:"-"`
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Message is the single human-readable text shown to the operator.
func (e *AnalysisError) Message() string {
	switch e.Kind {
	case KindTimeout:
		return MessageTimeout
	case KindService:
		return e.Detail
	case KindCancelled:
		return MessageCancelled
	default:
		return MessageTransport
	}
}

// KindOf extracts the ErrorKind carried by err, or "" when err is unclassified.
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return KindValidation
	}
	return ""
}
