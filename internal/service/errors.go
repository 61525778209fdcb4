package service

import (
	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// Command errors
var (
	// ErrRemoteNotConfirmed is returned when the gateway accepted a call but
	// did not report the requested state afterwards. Local state is left
	// untouched.
	ErrRemoteNotConfirmed = &domain.Error{Code: domain.ECONFLICT, Message: "gateway did not confirm the requested change"}

	// ErrRefundDeclined is returned when the gateway rejected a refund.
	ErrRefundDeclined = &domain.Error{Code: domain.EPAYMENT, Message: "gateway declined the refund"}

	ErrInvalidParams = &domain.Error{Code: domain.EINVALID, Message: "invalid command parameters"}
)
