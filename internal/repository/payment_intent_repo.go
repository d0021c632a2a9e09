package repository

import (
	"context"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
)

type CreatePaymentIntentInput struct {
	TransactionID string
	UserID        int64
	PackageID     int64
	Amount        int64
}

const paymentIntentColumns = `id, transaction_id, user_id, package_id, amount, status, provider_ref, created_at, updated_at`

// PaymentIntentRepository owns payment intents, keyed by the provider-issued
// transaction id.
type PaymentIntentRepository struct {
	db DBTX
}

func NewPaymentIntentRepository(db DBTX) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

func (r *PaymentIntentRepository) scanIntent(row interface{ Scan(...any) error }) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := row.Scan(
		&intent.ID,
		&intent.TransactionID,
		&intent.UserID,
		&intent.PackageID,
		&intent.Amount,
		&intent.Status,
		&intent.ProviderRef,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *PaymentIntentRepository) Create(
	ctx context.Context,
	input CreatePaymentIntentInput,
) (*models.PaymentIntent, error) {
	query := `
		INSERT INTO payment_intents (transaction_id, user_id, package_id, amount, status)
		VALUES ($1, $2, $3, $4, 'Pending')
		RETURNING ` + paymentIntentColumns
	return r.scanIntent(r.db.QueryRow(
		ctx,
		query,
		input.TransactionID,
		input.UserID,
		input.PackageID,
		input.Amount,
	))
}

func (r *PaymentIntentRepository) GetByTransactionID(
	ctx context.Context,
	transactionID string,
) (*models.PaymentIntent, error) {
	query := `
		SELECT ` + paymentIntentColumns + `
		FROM payment_intents
		WHERE transaction_id = $1
	`
	return r.scanIntent(r.db.QueryRow(ctx, query, transactionID))
}

// CompleteIfPending finalizes the intent exactly once. Only a Pending row
// matches: redelivered success callbacks, and a success callback arriving
// after a failure already finalized the intent, observe zero rows.
func (r *PaymentIntentRepository) CompleteIfPending(
	ctx context.Context,
	transactionID string,
	providerRef *string,
) (*models.PaymentIntent, error) {
	query := `
		UPDATE payment_intents
		SET status = 'Completed', provider_ref = COALESCE($2, provider_ref), updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'Pending'
		RETURNING ` + paymentIntentColumns
	return r.scanIntent(r.db.QueryRow(ctx, query, transactionID, providerRef))
}

// FailIfPending marks a pending intent failed; completed or already-failed
// intents are left untouched.
func (r *PaymentIntentRepository) FailIfPending(
	ctx context.Context,
	transactionID string,
) (*models.PaymentIntent, error) {
	query := `
		UPDATE payment_intents
		SET status = 'Failed', updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'Pending'
		RETURNING ` + paymentIntentColumns
	return r.scanIntent(r.db.QueryRow(ctx, query, transactionID))
}

func (r *PaymentIntentRepository) ListByUser(
	ctx context.Context,
	userID int64,
) ([]models.PaymentIntent, error) {
	query := `
		SELECT ` + paymentIntentColumns + `
		FROM payment_intents
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intents := make([]models.PaymentIntent, 0)
	for rows.Next() {
		intent, err := r.scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *intent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return intents, nil
}
