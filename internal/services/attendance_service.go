package services

import (
	"context"
	"time"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/repository"
	"github.com/rs/zerolog"
)

type AttendanceEventInput struct {
	MeetingRef    string
	ParticipantID string
	EventType     string
	OccurredAt    time.Time
}

// AttendanceService ingests raw meeting-provider events and derives the
// attended duration for a session.
type AttendanceService struct {
	attendanceRepo *repository.AttendanceRepository
	sessionRepo    *repository.SessionRepository
	log            zerolog.Logger
}

func NewAttendanceService(
	attendanceRepo *repository.AttendanceRepository,
	sessionRepo *repository.SessionRepository,
	log zerolog.Logger,
) *AttendanceService {
	return &AttendanceService{
		attendanceRepo: attendanceRepo,
		sessionRepo:    sessionRepo,
		log:            log,
	}
}

// RecordEvent appends one provider event. Events arrive at-least-once and
// possibly out of order; redelivery dedupes on the natural key.
func (s *AttendanceService) RecordEvent(ctx context.Context, input AttendanceEventInput) error {
	if input.MeetingRef == "" || !models.ValidAttendanceEventType(input.EventType) || input.OccurredAt.IsZero() {
		return ErrInvalidInput
	}
	// Meeting-level events carry no participant.
	if input.EventType != models.AttendanceEnded && input.ParticipantID == "" {
		return ErrInvalidInput
	}

	inserted, err := s.attendanceRepo.Record(ctx, repository.RecordAttendanceInput{
		MeetingRef:    input.MeetingRef,
		ParticipantID: input.ParticipantID,
		EventType:     input.EventType,
		OccurredAt:    input.OccurredAt.UTC(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		s.log.Debug().
			Str("meeting_ref", input.MeetingRef).
			Str("event_type", input.EventType).
			Msg("duplicate attendance event ignored")
	}
	return nil
}

// AttendedMinutes computes the session's attended duration from all events
// across all of its meeting parts: latest meeting end minus earliest
// participant join, rounded to the nearest minute.
func (s *AttendanceService) AttendedMinutes(ctx context.Context, sessionID int64) (int, error) {
	meetings, err := s.sessionRepo.ListMeetings(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if len(meetings) == 0 {
		return 0, ErrNoMeetingsProvisioned
	}

	refs := make([]string, 0, len(meetings))
	for _, meeting := range meetings {
		refs = append(refs, meeting.MeetingRef)
	}

	events, err := s.attendanceRepo.ListByMeetingRefs(ctx, refs)
	if err != nil {
		return 0, err
	}
	return attendedMinutes(events)
}

// attendedMinutes is the pure window computation. Using earliest join to
// latest end, rather than summing per-participant intervals, tolerates a
// participant dropping and rejoining: the session, not any one participant,
// must run long enough.
func attendedMinutes(events []models.AttendanceEvent) (int, error) {
	var firstJoin, lastEnd time.Time
	for _, event := range events {
		switch event.EventType {
		case models.AttendanceJoined:
			if firstJoin.IsZero() || event.OccurredAt.Before(firstJoin) {
				firstJoin = event.OccurredAt
			}
		case models.AttendanceEnded:
			if lastEnd.IsZero() || event.OccurredAt.After(lastEnd) {
				lastEnd = event.OccurredAt
			}
		}
	}
	if firstJoin.IsZero() || lastEnd.IsZero() {
		return 0, ErrInsufficientAttendance
	}
	return int(lastEnd.Sub(firstJoin).Round(time.Minute) / time.Minute), nil
}
