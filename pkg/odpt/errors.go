package odpt

import (
	"errors"
	"fmt"
	"net/http"

	"odptbus/pkg/otel"
	"odptbus/pkg/parser"
)

// Kind classifies a failed fetch.
type Kind int

const (
	// KindNetwork covers failures before a response arrives: DNS, refused
	// connections, TLS and cancelled contexts.
	KindNetwork Kind = iota + 1
	// KindHTTP is a response with a status outside 200-299.
	KindHTTP
	// KindDecode is a 2xx body that could not be read in full or did not
	// decode into the expected records.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FetchError is the error returned by Fetch and the retrieval operations.
type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int // set for KindHTTP only
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("API returned status %d %s from %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
	case KindDecode:
		return fmt.Sprintf("failed to decode response from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the same request might succeed later. It only
// feeds telemetry; nothing in this package retries.
func (e *FetchError) IsTransient() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindHTTP:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// ErrorType maps the error onto the error.type values used on spans and
// metrics.
func (e *FetchError) ErrorType() string {
	switch e.Kind {
	case KindHTTP:
		return otel.ErrorTypeHTTP
	case KindDecode:
		var validationErr *parser.ValidationError
		if errors.As(e.Err, &validationErr) {
			return otel.ErrorTypeValidation
		}
		return otel.ErrorTypeParse
	default:
		return otel.ErrorTypeNetwork
	}
}

// IsKind reports whether err is a *FetchError of kind k.
func IsKind(err error, k Kind) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Kind == k
}
