package event

import "github.com/chicsouqsa-collab/Spay-sub001/internal/domain"

var (
	// ErrMalformedEvent is returned when a payload cannot be decoded.
	ErrMalformedEvent = &domain.Error{Code: domain.EINVALID, Message: "malformed gateway event"}

	// ErrUnsupportedEvent is returned for events whose object cannot be
	// mapped to a local record, e.g. a paid invoice without a payment
	// intent.
	ErrUnsupportedEvent = &domain.Error{Code: domain.EINVALID, Message: "unsupported gateway event"}
)
