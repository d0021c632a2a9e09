package repository

import (
	"context"
	"time"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
)

type RecordAttendanceInput struct {
	MeetingRef    string
	ParticipantID string
	EventType     string
	OccurredAt    time.Time
}

// AttendanceRepository owns the append-only attendance event log. Rows are
// never mutated after insert.
type AttendanceRepository struct {
	db DBTX
}

func NewAttendanceRepository(db DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Record appends one provider event. Duplicate delivery of the same event is
// a silent no-op via the natural-key uniqueness constraint; the returned bool
// reports whether a new row was written.
func (r *AttendanceRepository) Record(
	ctx context.Context,
	input RecordAttendanceInput,
) (bool, error) {
	query := `
		INSERT INTO attendance_events (meeting_ref, participant_id, event_type, occurred_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (meeting_ref, participant_id, event_type, occurred_at) DO NOTHING
	`
	tag, err := r.db.Exec(
		ctx,
		query,
		input.MeetingRef,
		input.ParticipantID,
		input.EventType,
		input.OccurredAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *AttendanceRepository) ListByMeetingRefs(
	ctx context.Context,
	meetingRefs []string,
) ([]models.AttendanceEvent, error) {
	events := make([]models.AttendanceEvent, 0)
	if len(meetingRefs) == 0 {
		return events, nil
	}

	query := `
		SELECT id, meeting_ref, participant_id, event_type, occurred_at, created_at
		FROM attendance_events
		WHERE meeting_ref = ANY($1)
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, meetingRefs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.AttendanceEvent
		if err := rows.Scan(
			&event.ID,
			&event.MeetingRef,
			&event.ParticipantID,
			&event.EventType,
			&event.OccurredAt,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
