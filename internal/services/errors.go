package services

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrTutorNotFound          = errors.New("tutor not found")
	ErrInsufficientTokens     = errors.New("insufficient tokens")
	ErrMeetingsProvisioned    = errors.New("meetings already provisioned for this session")
	ErrNoMeetingsProvisioned  = errors.New("no meetings provisioned for this session")
	ErrInsufficientAttendance = errors.New("insufficient attendance data")
	ErrAttendanceTooShort     = errors.New("attendance below required threshold")
	ErrUpstreamUnavailable    = errors.New("upstream capability unavailable")
)

// InsufficientTokensError carries the shortfall so callers can tell the
// student exactly how many tokens they are missing.
type InsufficientTokensError struct {
	Required int64
	Balance  int64
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("insufficient tokens: need %d more to book this session", e.Shortfall())
}

func (e *InsufficientTokensError) Unwrap() error { return ErrInsufficientTokens }

func (e *InsufficientTokensError) Shortfall() int64 { return e.Required - e.Balance }

// AttendanceTooShortError reports how far short of the policy threshold the
// session's attended time fell.
type AttendanceTooShortError struct {
	AttendedMinutes int
	RequiredMinutes int
}

func (e *AttendanceTooShortError) Error() string {
	return fmt.Sprintf(
		"attended %d minutes, below the required %d minutes",
		e.AttendedMinutes,
		e.RequiredMinutes,
	)
}

func (e *AttendanceTooShortError) Unwrap() error { return ErrAttendanceTooShort }
