package domain

import (
	"errors"
	"fmt"
)

// Validation codes, one per rejection rule of the booking engine.
const (
	CodeMissingData     = "MISSING_DATA"
	CodeNonWorkingDay   = "NON_WORKING_DAY"
	CodePastTime        = "TIME_PASSED"
	CodeInvalidDuration = "INVALID_DURATION"
	CodeNotEnoughSlots  = "NOT_ENOUGH_SLOTS"
	CodeSlotBooked      = "SLOT_BOOKED"
	CodeDailyLimit      = "DAILY_LIMIT"
	CodeRecurringLimit  = "RECURRING_LIMIT"
	CodeInvalidSettings = "INVALID_SETTINGS"
)

// ValidationError is a recoverable rejection with a user-facing reason.
type ValidationError struct {
	Code   string
	Reason string
	// Date is set when the failing check ran for one week of a recurring series.
	Date string
}

func (e *ValidationError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("%s (%s)", e.Reason, e.Date)
	}
	return e.Reason
}

func Reject(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError means the request lost a race or asked for an illegal state change.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

var (
	ErrSlotTaken         = &ConflictError{Reason: "slot already booked"}
	ErrInvalidTransition = &ConflictError{Reason: "booking status cannot be changed"}
	ErrNotFound          = errors.New("booking not found")
)

// ConfigurationError marks settings that cannot produce a schedule.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Reason }

// StorageError wraps a data-access failure. Its message is for logs only.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
