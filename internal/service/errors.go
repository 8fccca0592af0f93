package service

import "errors"

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrPositionNotFound = errors.New("order position not found")

	// ErrLockTimeout is transient. The scheduling run may be retried.
	ErrLockTimeout = errors.New("could not lock event in time")

	// ErrAlreadyScheduled means the origin already has a follow-up.
	ErrAlreadyScheduled = errors.New("a second appointment has already been scheduled")

	ErrNoProduct          = errors.New("no matching product in target event")
	ErrNoVariation        = errors.New("no matching product variation in target event")
	ErrPreferredItemEvent = errors.New("preferred product belongs to another event")
	ErrNoSlot             = errors.New("no available time slot found")
)

// Failure reasons written to the audit log of the origin order.
const (
	ReasonNoProduct          = "No product found"
	ReasonNoVariation        = "No product variation found"
	ReasonPreferredItemEvent = "Preferred product is not part of the target event"
	ReasonNoSlot             = "No available time slot found"
	ReasonLockTimeout        = "Could not lock the target event, retries exhausted"
)

// Audit log action types.
const (
	ActionFailed      = "autosched.failed"
	ActionScheduled   = "autosched.scheduled"
	ActionCreated     = "autosched.created"
	ActionOrderPlaced = "order.placed"
)

// ValidationError is a user-correctable input error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// UserError carries a message meant for the attendee using self-service.
type UserError struct {
	Kind    error
	Message string
}

func (e *UserError) Error() string { return e.Message }
func (e *UserError) Unwrap() error { return e.Kind }

func userError(kind error, msg string) error {
	return &UserError{Kind: kind, Message: msg}
}
