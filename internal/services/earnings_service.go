package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/repository"
)

// commissionRate is the platform's cut of a session's gross amount.
const commissionRate = 0.15

// NetEarnings computes the tutor's take after commission, rounded to the
// nearest whole token.
func NetEarnings(grossTokens int64) int64 {
	return int64(math.Round(float64(grossTokens) * (1 - commissionRate)))
}

// EarningsService records tutor earnings. Creation and settlement are both
// idempotent, enforced by the session_id uniqueness constraint rather than
// application-level locking.
type EarningsService struct {
	earningsRepo *repository.EarningsRepository
}

func NewEarningsService(earningsRepo *repository.EarningsRepository) *EarningsService {
	return &EarningsService{earningsRepo: earningsRepo}
}

// RecordExpected writes the pending entry when a tutor accepts a session.
// Calling it twice for the same session leaves a single row.
func (s *EarningsService) RecordExpected(ctx context.Context, session *models.Session) error {
	net := NetEarnings(session.AmountTokens)
	_, err := s.earningsRepo.CreatePending(ctx, repository.CreateEarningsInput{
		SessionID:   session.ID,
		TutorID:     session.TutorID,
		GrossTokens: session.AmountTokens,
		NetTokens:   net,
		Description: fmt.Sprintf("Net earnings from session %q", session.Subject),
	})
	return err
}

// Finalize settles the entry when the session completes. A second call for
// the same session is a no-op, not a duplicate credit.
func (s *EarningsService) Finalize(ctx context.Context, sessionID int64, settledAt time.Time) error {
	_, err := s.earningsRepo.SettleIfPending(ctx, sessionID, settledAt)
	return err
}

func (s *EarningsService) ListForTutor(ctx context.Context, tutorID int64) ([]models.EarningsEntry, error) {
	return s.earningsRepo.ListByTutor(ctx, tutorID)
}

func (s *EarningsService) Summary(
	ctx context.Context,
	tutorID int64,
	start time.Time,
	end time.Time,
) (*models.EarningsSummary, error) {
	if start.After(end) {
		return nil, ErrInvalidInput
	}
	return s.earningsRepo.Summarize(ctx, tutorID, start, end)
}
