package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/repository"
	"github.com/rs/zerolog"
)

// initiateTimeout bounds the synchronous payment-initiation call.
const initiateTimeout = 30 * time.Second

var ErrPackageNotFound = errors.New("package not found")
var ErrIntentNotFound = errors.New("payment intent not found")

// PaymentResult is an already-authenticated, already-parsed gateway
// callback. Delivery is at-least-once and may race the polling path; both
// converge on Reconcile.
type PaymentResult struct {
	TransactionID string
	Succeeded     bool
	ProviderRef   string
}

// PaymentService correlates gateway callbacks to locally-initiated payment
// intents and credits purchased tokens exactly once per transaction.
type PaymentService struct {
	db          *pgxpool.Pool
	intentRepo  *repository.PaymentIntentRepository
	packageRepo *repository.PackageRepository
	gateway     PaymentGateway
	notifier    Notifier
	userRepo    userReader
	log         zerolog.Logger
}

func NewPaymentService(
	db *pgxpool.Pool,
	intentRepo *repository.PaymentIntentRepository,
	packageRepo *repository.PackageRepository,
	gateway PaymentGateway,
	notifier Notifier,
	userRepo userReader,
	log zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		db:          db,
		intentRepo:  intentRepo,
		packageRepo: packageRepo,
		gateway:     gateway,
		notifier:    notifier,
		userRepo:    userRepo,
		log:         log,
	}
}

// Initiate starts a token-package purchase. The intent is persisted under
// the provider-issued transaction id before returning, so a callback that
// races the response still finds its intent.
func (s *PaymentService) Initiate(
	ctx context.Context,
	userID int64,
	packageID int64,
	payerRef string,
) (*models.PaymentIntent, error) {
	if payerRef == "" {
		return nil, ErrInvalidInput
	}
	if s.gateway == nil {
		return nil, ErrUpstreamUnavailable
	}

	pkg, err := s.packageRepo.GetByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, initiateTimeout)
	defer cancel()
	transactionID, err := s.gateway.InitiatePayment(callCtx, pkg.Price, payerRef)
	if err != nil {
		return nil, err
	}

	intent, err := s.intentRepo.Create(ctx, repository.CreatePaymentIntentInput{
		TransactionID: transactionID,
		UserID:        userID,
		PackageID:     packageID,
		Amount:        pkg.Price,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction_id", transactionID).
		Int64("user_id", userID).
		Int64("package_id", packageID).
		Msg("payment initiated")
	return intent, nil
}

// Reconcile is the single entry point for gateway results, from webhooks and
// polling alike. A success result completes the intent and credits the
// package's tokens inside one transaction; redelivery finds the intent
// already Completed and returns without effect.
func (s *PaymentService) Reconcile(ctx context.Context, result PaymentResult) error {
	if result.TransactionID == "" {
		return ErrInvalidInput
	}

	if !result.Succeeded {
		_, err := s.intentRepo.FailIfPending(ctx, result.TransactionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Unknown transaction or already finalized; nothing to do.
				return s.requireKnownIntent(ctx, result.TransactionID)
			}
			return err
		}
		s.log.Info().Str("transaction_id", result.TransactionID).Msg("payment marked failed")
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txIntentRepo := repository.NewPaymentIntentRepository(tx)

	var providerRef *string
	if result.ProviderRef != "" {
		providerRef = &result.ProviderRef
	}
	intent, err := txIntentRepo.CompleteIfPending(ctx, result.TransactionID, providerRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race, redelivered, or already finalized as Failed:
			// verify the intent exists, then return without any further
			// effect. A finalized intent is never re-opened.
			return s.requireKnownIntent(ctx, result.TransactionID)
		}
		return err
	}

	pkg, err := repository.NewPackageRepository(tx).GetByID(ctx, intent.PackageID)
	if err != nil {
		return err
	}

	balance, err := repository.NewTokenRepository(tx).Credit(ctx, intent.UserID, pkg.Credits)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.log.Info().
		Str("transaction_id", result.TransactionID).
		Int64("user_id", intent.UserID).
		Int64("credits", pkg.Credits).
		Int64("balance", balance).
		Msg("payment reconciled, tokens credited")

	if user, err := s.userRepo.GetByID(ctx, intent.UserID); err == nil {
		dispatchNotification(s.notifier, s.log, user.Email,
			"Token Purchase Successful",
			fmt.Sprintf("Your purchase of %d tokens is complete. New balance: %d tokens.", pkg.Credits, balance))
	}
	return nil
}

// ConfirmPayment reports the intent's current status for client polling.
func (s *PaymentService) ConfirmPayment(
	ctx context.Context,
	userID int64,
	transactionID string,
) (*models.PaymentIntent, error) {
	intent, err := s.intentRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	if intent.UserID != userID {
		return nil, ErrForbidden
	}
	return intent, nil
}

func (s *PaymentService) ListPackages(ctx context.Context) ([]models.Package, error) {
	return s.packageRepo.List(ctx)
}

func (s *PaymentService) ListTransactions(
	ctx context.Context,
	userID int64,
) ([]models.PaymentIntent, error) {
	return s.intentRepo.ListByUser(ctx, userID)
}

// requireKnownIntent distinguishes an idempotent no-op (intent exists) from
// a callback for a transaction this system never initiated.
func (s *PaymentService) requireKnownIntent(ctx context.Context, transactionID string) error {
	_, err := s.intentRepo.GetByTransactionID(ctx, transactionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrIntentNotFound
	}
	return err
}
