package executor

import "errors"

var (
	// ErrUnknownActionType is returned when no executor is registered for an
	// action's type.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrBadParams is returned when an action's params are missing required
	// keys or carry values of the wrong type.
	ErrBadParams = errors.New("invalid action params")
)
