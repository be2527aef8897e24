package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
)

// UserNotFoundError is returned by ConfirmForUser when the user is not one of
// the notification's recipients.
type UserNotFoundError struct {
	UserID string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user with id %s not found in notification", e.UserID)
}

func (e *UserNotFoundError) Unwrap() error { return ErrBadRequest }

// EventSourceMismatchError is returned by ConfirmForEvent when the candidate
// event came from a different source than the one that raised the notification.
type EventSourceMismatchError struct {
	Expected string
	Actual   string
}

func (e *EventSourceMismatchError) Error() string {
	return fmt.Sprintf("event source mismatch: expected %s, but got %s", e.Expected, e.Actual)
}

func (e *EventSourceMismatchError) Unwrap() error { return ErrBadRequest }

// NotificationNotFoundError is returned by repositories on a lookup miss.
type NotificationNotFoundError struct {
	NotificationID string
}

func (e *NotificationNotFoundError) Error() string {
	return fmt.Sprintf("notification with id %s not found", e.NotificationID)
}

func (e *NotificationNotFoundError) Unwrap() error { return ErrNotFound }

// NotificationAlreadyConfirmedError protects the single user confirmation a
// notification may carry.
type NotificationAlreadyConfirmedError struct {
	NotificationID string
}

func (e *NotificationAlreadyConfirmedError) Error() string {
	return fmt.Sprintf("notification %s is already confirmed by a user", e.NotificationID)
}

func (e *NotificationAlreadyConfirmedError) Unwrap() error { return ErrConflict }
