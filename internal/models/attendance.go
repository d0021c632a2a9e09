package models

import "time"

// Attendance event types as reported by the meeting provider.
const (
	AttendanceJoined = "joined"
	AttendanceLeft   = "left"
	AttendanceEnded  = "ended"
)

// AttendanceEvent is one provider-reported join/leave/end event. Events are
// append-only and deduplicated on (meeting_ref, participant_id, event_type,
// occurred_at); redelivery of the same event is a silent no-op.
type AttendanceEvent struct {
	ID            int64     `json:"id"`
	MeetingRef    string    `json:"meeting_ref"`
	ParticipantID string    `json:"participant_id"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func ValidAttendanceEventType(eventType string) bool {
	switch eventType {
	case AttendanceJoined, AttendanceLeft, AttendanceEnded:
		return true
	}
	return false
}
