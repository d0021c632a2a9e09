package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
)

type CreateSessionInput struct {
	TutorID      int64
	StudentID    int64
	SessionType  string
	Subject      string
	ScheduledAt  time.Time
	AmountTokens int64
}

type SessionListFilter struct {
	ActorID   int64
	Role      string
	Status    string
	Timeframe string
}

const sessionColumns = `id, tutor_id, student_id, session_type, subject, scheduled_at,
		amount_tokens, status, cancellation_reason, completion_requested_at,
		completion_deadline, created_at, updated_at`

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.TutorID,
		&session.StudentID,
		&session.SessionType,
		&session.Subject,
		&session.ScheduledAt,
		&session.AmountTokens,
		&session.Status,
		&session.CancellationReason,
		&session.CompletionRequestedAt,
		&session.CompletionDeadline,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		INSERT INTO sessions (tutor_id, student_id, session_type, subject, scheduled_at, amount_tokens, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'upcoming')
		RETURNING %s
	`, sessionColumns)

	return r.scanSession(r.db.QueryRow(
		ctx,
		query,
		input.TutorID,
		input.StudentID,
		input.SessionType,
		input.Subject,
		input.ScheduledAt,
		input.AmountTokens,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE id = $1
	`, sessionColumns)
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.Session, error) {
	actorColumn := "student_id"
	if filter.Role == "tutor" {
		actorColumn = "tutor_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "scheduled_at > NOW()")
	case "past":
		whereParts = append(whereParts, "scheduled_at <= NOW()")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY scheduled_at ASC, id ASC
	`, sessionColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateStatusIfCurrent performs the transition only when the session is
// still in currentStatus. It returns pgx.ErrNoRows when another writer got
// there first; callers re-read and decide whether that is a no-op.
func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID int64,
	currentStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, sessionColumns)
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, nextStatus))
}

// CancelIfCurrent is UpdateStatusIfCurrent into cancelled, recording the
// reason in the same conditional update.
func (r *SessionRepository) CancelIfCurrent(
	ctx context.Context,
	sessionID int64,
	currentStatus string,
	reason string,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET status = 'cancelled', cancellation_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, sessionColumns)
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, reason))
}

// MarkCompletionPending moves an accepted session to completed_pending and
// stamps the confirmation window exactly once.
func (r *SessionRepository) MarkCompletionPending(
	ctx context.Context,
	sessionID int64,
	requestedAt time.Time,
	deadline time.Time,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET status = 'completed_pending', completion_requested_at = $2,
		    completion_deadline = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'accepted'
		RETURNING %s
	`, sessionColumns)
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID, requestedAt, deadline))
}

// ListExpiredCompletionPending returns sessions awaiting confirmation whose
// deadline has elapsed as of now.
func (r *SessionRepository) ListExpiredCompletionPending(
	ctx context.Context,
	now time.Time,
) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE status = 'completed_pending' AND completion_deadline < $1
		ORDER BY completion_deadline ASC
	`, sessionColumns)

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) AddMeeting(
	ctx context.Context,
	sessionID int64,
	part int,
	meetingRef string,
	joinURL string,
) (*models.SessionMeeting, error) {
	query := `
		INSERT INTO session_meetings (session_id, part, meeting_ref, join_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, session_id, part, meeting_ref, join_url, created_at
	`
	var meeting models.SessionMeeting
	err := r.db.QueryRow(ctx, query, sessionID, part, meetingRef, joinURL).Scan(
		&meeting.ID,
		&meeting.SessionID,
		&meeting.Part,
		&meeting.MeetingRef,
		&meeting.JoinURL,
		&meeting.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *SessionRepository) ListMeetings(
	ctx context.Context,
	sessionID int64,
) ([]models.SessionMeeting, error) {
	query := `
		SELECT id, session_id, part, meeting_ref, join_url, created_at
		FROM session_meetings
		WHERE session_id = $1
		ORDER BY part ASC
	`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meetings := make([]models.SessionMeeting, 0)
	for rows.Next() {
		var meeting models.SessionMeeting
		if err := rows.Scan(
			&meeting.ID,
			&meeting.SessionID,
			&meeting.Part,
			&meeting.MeetingRef,
			&meeting.JoinURL,
			&meeting.CreatedAt,
		); err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meetings, nil
}

// GetByMeetingRef resolves the session backed by a provider meeting.
func (r *SessionRepository) GetByMeetingRef(
	ctx context.Context,
	meetingRef string,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE id = (SELECT session_id FROM session_meetings WHERE meeting_ref = $1 LIMIT 1)
	`, sessionColumns)
	return r.scanSession(r.db.QueryRow(ctx, query, meetingRef))
}
