package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/repository"
	"github.com/rs/zerolog"
)

type fakePaymentGateway struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakePaymentGateway) InitiatePayment(_ context.Context, _ int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", fmt.Errorf("stk push: %w", ErrUpstreamUnavailable)
	}
	f.calls++
	return fmt.Sprintf("ws_CO_test_%d_%d", time.Now().UnixNano(), f.calls), nil
}

func newIntegrationPaymentService(pool *pgxpool.Pool, gateway PaymentGateway) *PaymentService {
	log := zerolog.Nop()
	return NewPaymentService(
		pool,
		repository.NewPaymentIntentRepository(pool),
		repository.NewPackageRepository(pool),
		gateway,
		NewLogNotifier(log),
		repository.NewUserRepository(pool),
		log,
	)
}

func firstPackage(t *testing.T, ctx context.Context, service *PaymentService) models.Package {
	t.Helper()

	packages, err := service.ListPackages(ctx)
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}
	if len(packages) == 0 {
		t.Skip("skipping: no packages seeded")
	}
	return packages[0]
}

func TestPaymentServiceInitiatePersistsIntent(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool, &fakePaymentGateway{})

	userID := createTestAccount(t, ctx, pool, "student", nil)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, userID) })

	pkg := firstPackage(t, ctx, service)

	intent, err := service.Initiate(ctx, userID, pkg.ID, "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if intent.Status != models.PaymentPending {
		t.Fatalf("expected pending intent, got %q", intent.Status)
	}
	if intent.Amount != pkg.Price {
		t.Fatalf("expected amount %d, got %d", pkg.Price, intent.Amount)
	}

	stored, err := service.ConfirmPayment(ctx, userID, intent.TransactionID)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if stored.Status != models.PaymentPending {
		t.Fatalf("expected stored pending intent, got %q", stored.Status)
	}
}

func TestPaymentServiceReconcileTwiceCreditsOnce(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool, &fakePaymentGateway{})

	userID := createTestAccount(t, ctx, pool, "student", nil)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, userID) })

	pkg := firstPackage(t, ctx, service)

	intent, err := service.Initiate(ctx, userID, pkg.ID, "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	result := PaymentResult{
		TransactionID: intent.TransactionID,
		Succeeded:     true,
		ProviderRef:   "RIF61H8LGU",
	}
	if err := service.Reconcile(ctx, result); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	if err := service.Reconcile(ctx, result); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}

	balance, err := repository.NewTokenRepository(pool).Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != pkg.Credits {
		t.Fatalf("expected balance %d after one credit, got %d", pkg.Credits, balance)
	}

	final, err := service.ConfirmPayment(ctx, userID, intent.TransactionID)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if final.Status != models.PaymentCompleted {
		t.Fatalf("expected completed intent, got %q", final.Status)
	}
	if final.ProviderRef == nil || *final.ProviderRef != "RIF61H8LGU" {
		t.Fatalf("expected provider ref, got %+v", final.ProviderRef)
	}
}

func TestPaymentServiceConcurrentReconcileCreditsOnce(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool, &fakePaymentGateway{})

	userID := createTestAccount(t, ctx, pool, "student", nil)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, userID) })

	pkg := firstPackage(t, ctx, service)

	intent, err := service.Initiate(ctx, userID, pkg.ID, "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	result := PaymentResult{TransactionID: intent.TransactionID, Succeeded: true}

	const attempts = 4
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- service.Reconcile(ctx, result)
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
	}

	balance, err := repository.NewTokenRepository(pool).Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != pkg.Credits {
		t.Fatalf("expected balance %d after concurrent reconciles, got %d", pkg.Credits, balance)
	}
}

func TestPaymentServiceReconcileFailureLeavesBalanceUntouched(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool, &fakePaymentGateway{})

	userID := createTestAccount(t, ctx, pool, "student", nil)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, userID) })

	pkg := firstPackage(t, ctx, service)

	intent, err := service.Initiate(ctx, userID, pkg.ID, "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if err := service.Reconcile(ctx, PaymentResult{TransactionID: intent.TransactionID, Succeeded: false}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	balance, err := repository.NewTokenRepository(pool).Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected zero balance, got %d", balance)
	}

	failed, err := service.ConfirmPayment(ctx, userID, intent.TransactionID)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if failed.Status != models.PaymentFailed {
		t.Fatalf("expected failed intent, got %q", failed.Status)
	}
}

func TestPaymentServiceSuccessAfterFailureNeverReopens(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool, &fakePaymentGateway{})

	userID := createTestAccount(t, ctx, pool, "student", nil)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, userID) })

	pkg := firstPackage(t, ctx, service)

	intent, err := service.Initiate(ctx, userID, pkg.ID, "0712345678")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if err := service.Reconcile(ctx, PaymentResult{TransactionID: intent.TransactionID, Succeeded: false}); err != nil {
		t.Fatalf("failure Reconcile: %v", err)
	}

	// Out-of-order success callback for an intent already finalized as
	// Failed must be a no-op.
	if err := service.Reconcile(ctx, PaymentResult{TransactionID: intent.TransactionID, Succeeded: true, ProviderRef: "RIF61H8LGU"}); err != nil {
		t.Fatalf("late success Reconcile: %v", err)
	}

	balance, err := repository.NewTokenRepository(pool).Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected zero balance for failed payment, got %d", balance)
	}

	final, err := service.ConfirmPayment(ctx, userID, intent.TransactionID)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if final.Status != models.PaymentFailed {
		t.Fatalf("expected intent to stay failed, got %q", final.Status)
	}
}

func TestPaymentServiceReconcileUnknownTransaction(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool, &fakePaymentGateway{})

	err := service.Reconcile(ctx, PaymentResult{TransactionID: "ws_CO_never_initiated", Succeeded: true})
	if !errors.Is(err, ErrIntentNotFound) {
		t.Fatalf("expected ErrIntentNotFound, got %v", err)
	}
}

func TestPaymentServiceInitiateSurfacesGatewayOutage(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool, &fakePaymentGateway{fail: true})

	userID := createTestAccount(t, ctx, pool, "student", nil)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, userID) })

	pkg := firstPackage(t, ctx, service)

	_, err := service.Initiate(ctx, userID, pkg.ID, "0712345678")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
