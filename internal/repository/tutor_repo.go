package repository

import (
	"context"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
)

type TutorOnboardingInput struct {
	DisplayName string
	Bio         *string
	Rates       map[string]int64
}

type TutorRepository struct {
	db DBTX
}

func NewTutorRepository(db DBTX) *TutorRepository {
	return &TutorRepository{db: db}
}

func (r *TutorRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO tutor_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *TutorRepository) GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error) {
	query := `
		SELECT user_id, display_name, bio, onboarding_complete, created_at, updated_at
		FROM tutor_profiles
		WHERE user_id = $1
	`
	var profile models.TutorProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Bio,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *TutorRepository) UpdateOnboarding(
	ctx context.Context,
	userID int64,
	input TutorOnboardingInput,
) (*models.TutorProfile, error) {
	query := `
		UPDATE tutor_profiles
		SET display_name = $2, bio = $3, onboarding_complete = TRUE, updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, display_name, bio, onboarding_complete, created_at, updated_at
	`
	var profile models.TutorProfile
	err := r.db.QueryRow(ctx, query, userID, input.DisplayName, input.Bio).Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Bio,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for sessionType, price := range input.Rates {
		if err := r.UpsertRate(ctx, userID, sessionType, price); err != nil {
			return nil, err
		}
	}
	return &profile, nil
}

func (r *TutorRepository) UpsertRate(
	ctx context.Context,
	tutorID int64,
	sessionType string,
	priceTokens int64,
) error {
	query := `
		INSERT INTO tutor_rates (tutor_id, session_type, price_tokens)
		VALUES ($1, $2, $3)
		ON CONFLICT (tutor_id, session_type) DO UPDATE SET price_tokens = EXCLUDED.price_tokens
	`
	_, err := r.db.Exec(ctx, query, tutorID, sessionType, priceTokens)
	return err
}

// GetRate returns the tutor's published price for a session type. Callers
// read the rate once at booking time; the booked amount is immutable after.
func (r *TutorRepository) GetRate(
	ctx context.Context,
	tutorID int64,
	sessionType string,
) (int64, error) {
	query := `
		SELECT price_tokens
		FROM tutor_rates
		WHERE tutor_id = $1 AND session_type = $2
	`
	var price int64
	if err := r.db.QueryRow(ctx, query, tutorID, sessionType).Scan(&price); err != nil {
		return 0, err
	}
	return price, nil
}

func (r *TutorRepository) ListRates(ctx context.Context, tutorID int64) ([]models.TutorRate, error) {
	query := `
		SELECT tutor_id, session_type, price_tokens
		FROM tutor_rates
		WHERE tutor_id = $1
		ORDER BY session_type
	`
	rows, err := r.db.Query(ctx, query, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := make([]models.TutorRate, 0)
	for rows.Next() {
		var rate models.TutorRate
		if err := rows.Scan(&rate.TutorID, &rate.SessionType, &rate.PriceTokens); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rates, nil
}
