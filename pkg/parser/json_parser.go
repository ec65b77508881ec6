package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"odptbus/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyBody is returned for a response body with no JSON value in it.
var ErrEmptyBody = errors.New("empty response body")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError reports a decoded record that failed its struct validation.
// Index is the position in the decoded slice, or -1 for a single object.
type ValidationError struct {
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("record failed validation: %v", e.Err)
	}
	return fmt.Sprintf("record %d failed validation: %v", e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Decode parses body as T and validates every decoded record. On any failure
// it returns the zero T, never a partially populated value.
func Decode[T any](ctx context.Context, body []byte) (T, error) {
	var zero T
	target := fmt.Sprintf("%T", zero)

	ctx, span := tracer().Start(ctx, "json_parser.decode",
		trace.WithAttributes(
			attribute.String("decode.target", target),
			attribute.Int("json_size_bytes", len(body)),
		),
	)
	defer span.End()

	start := time.Now()

	var out T
	err := decodeInto(body, &out)
	count := recordCount(out)
	metrics.RecordDecode(ctx, target, len(body), count, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		return zero, err
	}

	span.SetAttributes(attribute.Int("records_count", count))
	return out, nil
}

func decodeInto[T any](body []byte, out *T) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ErrEmptyBody
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return errors.New("unexpected JSON null")
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return validateRecords(*out)
}

// validateRecords runs struct validation on v, or on each element when v is a slice.
func validateRecords(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			elem := reflect.Indirect(rv.Index(i))
			if elem.Kind() != reflect.Struct {
				continue
			}
			if err := validate.Struct(elem.Interface()); err != nil {
				return &ValidationError{Index: i, Err: err}
			}
		}
	case reflect.Struct:
		if err := validate.Struct(rv.Interface()); err != nil {
			return &ValidationError{Index: -1, Err: err}
		}
	}
	return nil
}

func recordCount(v any) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len()
	case reflect.Invalid:
		return 0
	default:
		return 1
	}
}

func tracer() trace.Tracer {
	return otel.Tracer("json-parser")
}
