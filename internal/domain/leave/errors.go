package leave

import (
	"errors"

	"leavetrack/internal/domain/policy"
)

var (
	ErrNotFound      = errors.New("leave request not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidRange  = errors.New("end date before start date")
	ErrInvalidStatus = errors.New("invalid status")
	ErrMissingReason = errors.New("reason is required")
	ErrEmptyComment  = errors.New("comment text is required")
	ErrBusy          = errors.New("leave balance is being updated")
	ErrUnknownType   = policy.ErrUnknownType
)
