package billing

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"
)

var (
	// ErrInvalidAPIKey is returned when the Stripe API key is invalid or missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrMissingCharge is returned when a refund is requested without a charge.
	ErrMissingCharge = errors.New("billing: charge id is required")
)

// Kind classifies gateway failures.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindCredentialsExpired Kind = "credentials_expired"
	KindRateLimited        Kind = "rate_limited"
	KindCard               Kind = "card"
	KindAPI                Kind = "api"
)

// Error wraps a Stripe API error with additional context.
type Error struct {
	Kind        Kind
	Op          string // gateway operation, e.g. "subscription.cancel"
	Message     string // Human-readable error message
	Code        string // Stripe error code (e.g., "resource_missing")
	DeclineCode string // Card decline reason (if applicable)
	StatusCode  int    // HTTP status code from Stripe
	RequestID   string // Stripe request ID for debugging
	Err         error  // Original error from Stripe SDK
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s: %s (code: %s)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("stripe: %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsDeclined returns true if error is due to card decline.
func (e *Error) IsDeclined() bool {
	return e.Kind == KindCard
}

// IsTemporary returns true if error is likely transient and retryable.
func (e *Error) IsTemporary() bool {
	return e.Kind == KindRateLimited || (e.Kind == KindAPI && e.StatusCode >= http.StatusInternalServerError)
}

// IsNotFound reports whether err is a gateway "resource not found" error.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsCredentialsExpired reports whether err was caused by revoked or
// expired gateway credentials.
func IsCredentialsExpired(err error) bool {
	return hasKind(err, KindCredentialsExpired)
}

func hasKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// wrapStripeError converts an SDK error into an *Error.
func wrapStripeError(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *stripe.Error
	if !errors.As(err, &se) {
		return &Error{Kind: KindAPI, Op: op, Message: err.Error(), Err: err}
	}

	e := &Error{
		Kind:        KindAPI,
		Op:          op,
		Message:     se.Msg,
		Code:        string(se.Code),
		DeclineCode: string(se.DeclineCode),
		StatusCode:  se.HTTPStatusCode,
		RequestID:   se.RequestID,
		Err:         err,
	}

	switch {
	case e.Code == "resource_missing" || se.HTTPStatusCode == http.StatusNotFound:
		e.Kind = KindNotFound
	case e.Code == "api_key_expired" || se.HTTPStatusCode == http.StatusUnauthorized:
		e.Kind = KindCredentialsExpired
	case e.Code == "rate_limit" || se.HTTPStatusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case se.Type == stripe.ErrorTypeCard || e.DeclineCode != "":
		e.Kind = KindCard
	}
	return e
}
