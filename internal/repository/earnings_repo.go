package repository

import (
	"context"
	"time"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
)

type CreateEarningsInput struct {
	SessionID   int64
	TutorID     int64
	GrossTokens int64
	NetTokens   int64
	Description string
}

type EarningsRepository struct {
	db DBTX
}

func NewEarningsRepository(db DBTX) *EarningsRepository {
	return &EarningsRepository{db: db}
}

// CreatePending writes the expected-earnings entry for a session. The
// uniqueness constraint on session_id makes a second call a no-op; the
// returned bool reports whether a row was written.
func (r *EarningsRepository) CreatePending(
	ctx context.Context,
	input CreateEarningsInput,
) (bool, error) {
	query := `
		INSERT INTO earnings (session_id, tutor_id, gross_tokens, net_tokens, status, description)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		ON CONFLICT (session_id) DO NOTHING
	`
	tag, err := r.db.Exec(
		ctx,
		query,
		input.SessionID,
		input.TutorID,
		input.GrossTokens,
		input.NetTokens,
		input.Description,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SettleIfPending marks the entry payable. Zero rows affected means the
// entry was already settled (or never recorded); both are safe no-ops for
// the caller.
func (r *EarningsRepository) SettleIfPending(
	ctx context.Context,
	sessionID int64,
	settledAt time.Time,
) (bool, error) {
	query := `
		UPDATE earnings
		SET status = 'settled', settled_at = $2
		WHERE session_id = $1 AND status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, sessionID, settledAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *EarningsRepository) GetBySessionID(
	ctx context.Context,
	sessionID int64,
) (*models.EarningsEntry, error) {
	query := `
		SELECT id, session_id, tutor_id, gross_tokens, net_tokens, status, description, created_at, settled_at
		FROM earnings
		WHERE session_id = $1
	`
	var entry models.EarningsEntry
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.TutorID,
		&entry.GrossTokens,
		&entry.NetTokens,
		&entry.Status,
		&entry.Description,
		&entry.CreatedAt,
		&entry.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *EarningsRepository) ListByTutor(
	ctx context.Context,
	tutorID int64,
) ([]models.EarningsEntry, error) {
	query := `
		SELECT id, session_id, tutor_id, gross_tokens, net_tokens, status, description, created_at, settled_at
		FROM earnings
		WHERE tutor_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.EarningsEntry, 0)
	for rows.Next() {
		var entry models.EarningsEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.TutorID,
			&entry.GrossTokens,
			&entry.NetTokens,
			&entry.Status,
			&entry.Description,
			&entry.CreatedAt,
			&entry.SettledAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Summarize totals a tutor's settled earnings inside the date range.
func (r *EarningsRepository) Summarize(
	ctx context.Context,
	tutorID int64,
	start time.Time,
	end time.Time,
) (*models.EarningsSummary, error) {
	query := `
		SELECT COALESCE(SUM(net_tokens), 0), COUNT(*)
		FROM earnings
		WHERE tutor_id = $1 AND status = 'settled' AND settled_at BETWEEN $2 AND $3
	`
	summary := models.EarningsSummary{StartDate: start, EndDate: end}
	err := r.db.QueryRow(ctx, query, tutorID, start, end).
		Scan(&summary.TotalNetTokens, &summary.SessionsCount)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
