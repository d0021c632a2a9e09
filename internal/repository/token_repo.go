package repository

import "context"

// TokenRepository is the exclusive owner of a user's spendable token
// balance. Debit and credit are single conditional updates so concurrent
// read-modify-write races against the same balance are impossible.
type TokenRepository struct {
	db DBTX
}

func NewTokenRepository(db DBTX) *TokenRepository {
	return &TokenRepository{db: db}
}

// Debit subtracts amount from the user's balance and returns the new
// balance. It returns pgx.ErrNoRows without touching the balance when the
// user has fewer than amount tokens.
func (r *TokenRepository) Debit(ctx context.Context, userID int64, amount int64) (int64, error) {
	query := `
		UPDATE users
		SET tokens = tokens - $2, updated_at = NOW()
		WHERE id = $1 AND tokens >= $2
		RETURNING tokens
	`
	var balance int64
	if err := r.db.QueryRow(ctx, query, userID, amount).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// Credit unconditionally adds amount to the user's balance and returns the
// new balance.
func (r *TokenRepository) Credit(ctx context.Context, userID int64, amount int64) (int64, error) {
	query := `
		UPDATE users
		SET tokens = tokens + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING tokens
	`
	var balance int64
	if err := r.db.QueryRow(ctx, query, userID, amount).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *TokenRepository) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT tokens FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}
