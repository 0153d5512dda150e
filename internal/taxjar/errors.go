package taxjar

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrImproperlyConfigured marks unrecoverable setup problems: a missing
	// access key or an API envelope carrying an error field.
	ErrImproperlyConfigured = errors.New("taxjar: improperly configured")
	// ErrAmountOrLineItemsRequired is returned when an order has neither a flat amount nor line items.
	ErrAmountOrLineItemsRequired = errors.New("taxjar: at least one of amount or line items is required")
	// ErrInvalidOrder wraps order and address parameters rejected by validation.
	ErrInvalidOrder = errors.New("taxjar: invalid order")
	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("taxjar: not found")
)

// TransportError reports a network failure or a non-2xx response from the API.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "taxjar: %s %s", e.Method, e.Path)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Body) > 0 {
		body := string(e.Body)
		if len(body) > 256 {
			body = body[:256] + "..."
		}
		fmt.Fprintf(&b, ": %s", body)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func improperlyConfigured(format string, args ...any) error {
	return errors.Wrapf(ErrImproperlyConfigured, format, args...)
}
