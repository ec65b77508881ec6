package otel

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// error.type values shared by spans and metrics.
const (
	ErrorTypeNetwork    = "network"
	ErrorTypeHTTP       = "http"
	ErrorTypeParse      = "parse"
	ErrorTypeValidation = "validation"
)

// Classified is implemented by errors that know their error.type and whether
// the same request might succeed later.
type Classified interface {
	error
	ErrorType() string
	IsTransient() bool
}

// Classify finds the first Classified error in err's chain. Errors without
// one get fallback and are not transient.
func Classify(err error, fallback string) (errorType string, transient bool) {
	var c Classified
	if errors.As(err, &c) {
		return c.ErrorType(), c.IsTransient()
	}
	return fallback, false
}

// FinishSpan sets the span status from err. A non-nil err is recorded with its
// classification, which is returned for use as a metric attribute. A nil err
// marks the span Ok and returns "".
func FinishSpan(span trace.Span, err error, fallback string) string {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return ""
	}

	errorType, transient := Classify(err, fallback)
	span.RecordError(err, trace.WithAttributes(
		attribute.String("error.type", errorType),
		attribute.Bool("error.transient", transient),
	))
	span.SetStatus(codes.Error, err.Error())
	return errorType
}
