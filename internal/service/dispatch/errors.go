package dispatch

import (
	"errors"
	"fmt"

	"github.com/pitchperfect/waitlist/internal/service/campaign"
)

// Sentinel errors for the dispatch service layer.
var (
	// ErrValidation is shared with the campaign package so callers can test
	// for any input problem with a single errors.Is.
	ErrValidation = campaign.ErrValidation

	ErrTestAddressRequired = fmt.Errorf("%w: test email address is required", ErrValidation)
	ErrTestAddressInvalid  = fmt.Errorf("%w: test email address is invalid", ErrValidation)

	// ErrStoreUnavailable means recipients or the campaign could not be read
	// or written before anything was sent.
	ErrStoreUnavailable = errors.New("campaign store unavailable")

	// ErrInProgress means another request is already dispatching the campaign.
	ErrInProgress = errors.New("campaign dispatch already in progress")
)
