package services

import (
	"context"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
)

// requiredAttendanceShare is the fraction of a session type's nominal
// duration that must have been attended before completion can be requested.
// Business policy, not a technical constraint.
const requiredAttendanceShare = 0.5

// nominalDurationMinutes maps each session type to its nominal length.
var nominalDurationMinutes = map[string]int{
	models.TypePrivateSession: 60,
	models.TypeGroupSession:   90,
	models.TypeLecture:        120,
	models.TypeWorkshop:       180,
}

type attendanceReader interface {
	AttendedMinutes(ctx context.Context, sessionID int64) (int, error)
}

// CompletionArbiter decides whether a session's recorded attendance
// qualifies it for completion.
type CompletionArbiter struct {
	attendance attendanceReader
}

func NewCompletionArbiter(attendance attendanceReader) *CompletionArbiter {
	return &CompletionArbiter{attendance: attendance}
}

// Approve returns nil when the session may complete, or a business-rule
// error describing why not.
func (a *CompletionArbiter) Approve(ctx context.Context, session *models.Session) error {
	required := RequiredAttendanceMinutes(session.SessionType)

	attended, err := a.attendance.AttendedMinutes(ctx, session.ID)
	if err != nil {
		return err
	}
	if attended < required {
		return &AttendanceTooShortError{AttendedMinutes: attended, RequiredMinutes: required}
	}
	return nil
}

// RequiredAttendanceMinutes returns the attendance threshold for a session
// type. Unknown types fall back to the private-session duration.
func RequiredAttendanceMinutes(sessionType string) int {
	nominal, ok := nominalDurationMinutes[sessionType]
	if !ok {
		nominal = nominalDurationMinutes[models.TypePrivateSession]
	}
	return int(float64(nominal) * requiredAttendanceShare)
}
