package models

import "time"

// Session lifecycle statuses. A session only moves between these states
// through conditional updates keyed on the current status.
const (
	SessionUpcoming         = "upcoming"
	SessionAccepted         = "accepted"
	SessionCompletedPending = "completed_pending"
	SessionCompleted        = "completed"
	SessionCancelled        = "cancelled"
)

// Session types offered by tutors, each with its own published rate.
const (
	TypePrivateSession = "privateSession"
	TypeGroupSession   = "groupSession"
	TypeLecture        = "lecture"
	TypeWorkshop       = "workshop"
)

type Session struct {
	ID                    int64      `json:"id"`
	TutorID               int64      `json:"tutor_id"`
	StudentID             int64      `json:"student_id"`
	SessionType           string     `json:"session_type"`
	Subject               string     `json:"subject"`
	ScheduledAt           time.Time  `json:"scheduled_at"`
	AmountTokens          int64      `json:"amount_tokens"`
	Status                string     `json:"status"`
	CancellationReason    *string    `json:"cancellation_reason,omitempty"`
	CompletionRequestedAt *time.Time `json:"completion_requested_at,omitempty"`
	CompletionDeadline    *time.Time `json:"completion_deadline,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// SessionMeeting is one provider meeting backing a session. Long sessions are
// split into numbered parts to fit the provider's per-meeting duration cap.
type SessionMeeting struct {
	ID         int64     `json:"id"`
	SessionID  int64     `json:"session_id"`
	Part       int       `json:"part"`
	MeetingRef string    `json:"meeting_ref"`
	JoinURL    string    `json:"join_url"`
	CreatedAt  time.Time `json:"created_at"`
}

type SessionDetail struct {
	Session
	Meetings []SessionMeeting `json:"meetings,omitempty"`
	Earnings *EarningsEntry   `json:"earnings,omitempty"`
}

func ValidSessionType(sessionType string) bool {
	switch sessionType {
	case TypePrivateSession, TypeGroupSession, TypeLecture, TypeWorkshop:
		return true
	}
	return false
}
