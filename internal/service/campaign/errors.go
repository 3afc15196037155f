package campaign

import (
	"errors"
	"fmt"
)

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound = errors.New("campaign not found")
	// ErrNotDraft is returned when a transition is attempted on a campaign
	// that already left draft.
	ErrNotDraft = errors.New("campaign is not a draft")

	ErrValidation      = errors.New("validation failed")
	ErrSubjectRequired = fmt.Errorf("%w: subject is required", ErrValidation)
	ErrContentRequired = fmt.Errorf("%w: content is required", ErrValidation)
)
