package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/repository"
	"github.com/rs/zerolog"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

type fakeMeetingProvider struct {
	mu      sync.Mutex
	created int
	fail    bool
}

func (f *fakeMeetingProvider) CreateMeeting(_ context.Context, topic string, _ time.Time, _ int, _ string) (*ProvisionedMeeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, fmt.Errorf("create meeting %q: %w", topic, ErrUpstreamUnavailable)
	}
	f.created++
	return &ProvisionedMeeting{
		MeetingRef: fmt.Sprintf("test-meeting-%d-%d", time.Now().UnixNano(), f.created),
		JoinURL:    "https://example.com/j/test",
	}, nil
}

func TestSessionServiceBookDebitsTokensOnce(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationSessionService(pool)

	studentID := createTestAccount(t, ctx, pool, "student", nil)
	tutorID := createTestAccount(t, ctx, pool, "tutor", map[string]int64{models.TypePrivateSession: 40})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	creditTokens(t, ctx, pool, studentID, 100)

	detail, err := service.BookSession(ctx, studentID, BookSessionInput{
		TutorID:     tutorID,
		SessionType: models.TypePrivateSession,
		Subject:     "Calculus",
		ScheduledAt: time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}

	if detail.Status != models.SessionUpcoming {
		t.Fatalf("expected upcoming session, got %q", detail.Status)
	}
	if detail.AmountTokens != 40 {
		t.Fatalf("expected amount 40, got %d", detail.AmountTokens)
	}

	balance, err := repository.NewTokenRepository(pool).Balance(ctx, studentID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 60 {
		t.Fatalf("expected balance 60 after booking, got %d", balance)
	}
}

func TestSessionServiceBookRejectsInsufficientTokens(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationSessionService(pool)

	studentID := createTestAccount(t, ctx, pool, "student", nil)
	tutorID := createTestAccount(t, ctx, pool, "tutor", map[string]int64{models.TypePrivateSession: 40})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	creditTokens(t, ctx, pool, studentID, 25)

	_, err := service.BookSession(ctx, studentID, BookSessionInput{
		TutorID:     tutorID,
		SessionType: models.TypePrivateSession,
		Subject:     "Calculus",
		ScheduledAt: time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC),
	})

	var tokensErr *InsufficientTokensError
	if !errors.As(err, &tokensErr) {
		t.Fatalf("expected InsufficientTokensError, got %v", err)
	}
	if tokensErr.Shortfall() != 15 {
		t.Fatalf("expected shortfall 15, got %d", tokensErr.Shortfall())
	}

	balance, err := repository.NewTokenRepository(pool).Balance(ctx, studentID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 25 {
		t.Fatalf("expected untouched balance 25, got %d", balance)
	}
}

func TestSessionServiceConcurrentAcceptWinsOnce(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationSessionService(pool)

	studentID := createTestAccount(t, ctx, pool, "student", nil)
	tutorID := createTestAccount(t, ctx, pool, "tutor", map[string]int64{models.TypePrivateSession: 40})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	creditTokens(t, ctx, pool, studentID, 100)

	detail, err := service.BookSession(ctx, studentID, BookSessionInput{
		TutorID:     tutorID,
		SessionType: models.TypePrivateSession,
		Subject:     "Calculus",
		ScheduledAt: time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}

	const attempts = 4
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.AcceptSession(ctx, tutorID, detail.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// Racers that lose the conditional update observe the session already
	// accepted and report success, but only one earnings entry may exist.
	for err := range results {
		if err != nil {
			t.Fatalf("AcceptSession: %v", err)
		}
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM earnings WHERE session_id = $1", detail.ID).Scan(&count); err != nil {
		t.Fatalf("count earnings: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one earnings entry, got %d", count)
	}
}

func TestSessionServiceConcurrentBookDebitsOnce(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationSessionService(pool)

	studentID := createTestAccount(t, ctx, pool, "student", nil)
	tutorID := createTestAccount(t, ctx, pool, "tutor", map[string]int64{models.TypePrivateSession: 40})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	// Balance covers exactly one booking.
	creditTokens(t, ctx, pool, studentID, 40)

	const attempts = 4
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.BookSession(ctx, studentID, BookSessionInput{
				TutorID:     tutorID,
				SessionType: models.TypePrivateSession,
				Subject:     "Calculus",
				ScheduledAt: time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var booked int
	for err := range results {
		if err == nil {
			booked++
			continue
		}
		var tokensErr *InsufficientTokensError
		if !errors.As(err, &tokensErr) {
			t.Fatalf("expected InsufficientTokensError from losing booking, got %v", err)
		}
	}
	if booked != 1 {
		t.Fatalf("expected exactly one booking to win, got %d", booked)
	}

	balance, err := repository.NewTokenRepository(pool).Balance(ctx, studentID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected single debit leaving balance 0, got %d", balance)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM sessions WHERE student_id = $1", studentID).Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one session row, got %d", count)
	}
}

func TestSessionServiceRejectsIllegalTransitions(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationSessionService(pool)

	studentID := createTestAccount(t, ctx, pool, "student", nil)
	tutorID := createTestAccount(t, ctx, pool, "tutor", map[string]int64{models.TypePrivateSession: 40})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	creditTokens(t, ctx, pool, studentID, 1000)

	book := func(t *testing.T) int64 {
		t.Helper()
		detail, err := service.BookSession(ctx, studentID, BookSessionInput{
			TutorID:     tutorID,
			SessionType: models.TypePrivateSession,
			Subject:     "Calculus",
			ScheduledAt: time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("BookSession: %v", err)
		}
		return detail.ID
	}
	accept := func(t *testing.T, sessionID int64) {
		t.Helper()
		if _, err := service.AcceptSession(ctx, tutorID, sessionID); err != nil {
			t.Fatalf("AcceptSession: %v", err)
		}
	}
	cancelAsTutor := func(t *testing.T, sessionID int64) {
		t.Helper()
		if _, err := service.CancelSession(ctx, tutorID, "tutor", sessionID, "setup"); err != nil {
			t.Fatalf("CancelSession: %v", err)
		}
	}

	cases := []struct {
		name       string
		arrange    func(t *testing.T, sessionID int64)
		act        func(sessionID int64) error
		wantStatus string
	}{
		{
			name:    "accept a cancelled session",
			arrange: cancelAsTutor,
			act: func(sessionID int64) error {
				_, err := service.AcceptSession(ctx, tutorID, sessionID)
				return err
			},
			wantStatus: models.SessionCancelled,
		},
		{
			name:    "tutor cancel after acceptance",
			arrange: accept,
			act: func(sessionID int64) error {
				_, err := service.CancelSession(ctx, tutorID, "tutor", sessionID, "too late")
				return err
			},
			wantStatus: models.SessionAccepted,
		},
		{
			name: "student cancel before acceptance",
			act: func(sessionID int64) error {
				_, err := service.CancelSession(ctx, studentID, "student", sessionID, "changed my mind")
				return err
			},
			wantStatus: models.SessionUpcoming,
		},
		{
			name: "request completion before acceptance",
			act: func(sessionID int64) error {
				_, err := service.RequestCompletion(ctx, tutorID, sessionID)
				return err
			},
			wantStatus: models.SessionUpcoming,
		},
		{
			name:    "confirm completion without a completion request",
			arrange: accept,
			act: func(sessionID int64) error {
				_, err := service.ConfirmCompletion(ctx, studentID, sessionID)
				return err
			},
			wantStatus: models.SessionAccepted,
		},
		{
			name: "provision meetings before acceptance",
			act: func(sessionID int64) error {
				_, err := service.ProvisionMeetings(ctx, tutorID, sessionID, ProvisionMeetingsInput{DurationMinutes: 60})
				return err
			},
			wantStatus: models.SessionUpcoming,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessionID := book(t)
			if tc.arrange != nil {
				tc.arrange(t, sessionID)
			}

			if err := tc.act(sessionID); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}

			current, err := repository.NewSessionRepository(pool).GetByID(ctx, sessionID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if current.Status != tc.wantStatus {
				t.Fatalf("expected status %q left unchanged, got %q", tc.wantStatus, current.Status)
			}
		})
	}
}

func TestSessionServiceConcurrentProvisionCreatesOnce(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationSessionService(pool)

	studentID := createTestAccount(t, ctx, pool, "student", nil)
	tutorID := createTestAccount(t, ctx, pool, "tutor", map[string]int64{models.TypePrivateSession: 40})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	creditTokens(t, ctx, pool, studentID, 100)

	detail, err := service.BookSession(ctx, studentID, BookSessionInput{
		TutorID:     tutorID,
		SessionType: models.TypePrivateSession,
		Subject:     "Calculus",
		ScheduledAt: time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := service.AcceptSession(ctx, tutorID, detail.ID); err != nil {
		t.Fatalf("AcceptSession: %v", err)
	}

	const attempts = 4
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.ProvisionMeetings(ctx, tutorID, detail.ID, ProvisionMeetingsInput{DurationMinutes: 30})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// Losers may fail on the refs-exist check or on the meeting unique
	// constraint; both surface as ErrMeetingsProvisioned.
	var provisioned int
	for err := range results {
		if err == nil {
			provisioned++
			continue
		}
		if !errors.Is(err, ErrMeetingsProvisioned) {
			t.Fatalf("expected ErrMeetingsProvisioned from losing provision, got %v", err)
		}
	}
	if provisioned != 1 {
		t.Fatalf("expected exactly one provision to win, got %d", provisioned)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM session_meetings WHERE session_id = $1", detail.ID).Scan(&count); err != nil {
		t.Fatalf("count meetings: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one meeting row, got %d", count)
	}
}

func TestSessionServiceCancelRefundsStudent(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, _ := newIntegrationSessionService(pool)

	studentID := createTestAccount(t, ctx, pool, "student", nil)
	tutorID := createTestAccount(t, ctx, pool, "tutor", map[string]int64{models.TypePrivateSession: 40})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	creditTokens(t, ctx, pool, studentID, 100)

	detail, err := service.BookSession(ctx, studentID, BookSessionInput{
		TutorID:     tutorID,
		SessionType: models.TypePrivateSession,
		Subject:     "Calculus",
		ScheduledAt: time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}

	cancelled, err := service.CancelSession(ctx, tutorID, "tutor", detail.ID, "double booked")
	if err != nil {
		t.Fatalf("CancelSession: %v", err)
	}
	if cancelled.Status != models.SessionCancelled {
		t.Fatalf("expected cancelled, got %q", cancelled.Status)
	}
	if cancelled.CancellationReason == nil || *cancelled.CancellationReason != "double booked" {
		t.Fatalf("expected cancellation reason, got %+v", cancelled.CancellationReason)
	}

	balance, err := repository.NewTokenRepository(pool).Balance(ctx, studentID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("expected refunded balance 100, got %d", balance)
	}
}

func TestSessionServiceFullLifecycleSettlesEarnings(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, attendance := newIntegrationSessionService(pool)

	studentID := createTestAccount(t, ctx, pool, "student", nil)
	tutorID := createTestAccount(t, ctx, pool, "tutor", map[string]int64{models.TypePrivateSession: 40})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	creditTokens(t, ctx, pool, studentID, 100)

	detail, err := service.BookSession(ctx, studentID, BookSessionInput{
		TutorID:     tutorID,
		SessionType: models.TypePrivateSession,
		Subject:     "Calculus",
		ScheduledAt: time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := service.AcceptSession(ctx, tutorID, detail.ID); err != nil {
		t.Fatalf("AcceptSession: %v", err)
	}

	provisioned, err := service.ProvisionMeetings(ctx, tutorID, detail.ID, ProvisionMeetingsInput{DurationMinutes: 60})
	if err != nil {
		t.Fatalf("ProvisionMeetings: %v", err)
	}
	if len(provisioned.Meetings) != 2 {
		t.Fatalf("expected 2 meeting parts for 60 minutes, got %d", len(provisioned.Meetings))
	}

	// A second provisioning attempt must not create more meetings.
	if _, err := service.ProvisionMeetings(ctx, tutorID, detail.ID, ProvisionMeetingsInput{DurationMinutes: 60}); err != ErrMeetingsProvisioned {
		t.Fatalf("expected ErrMeetingsProvisioned, got %v", err)
	}

	start := time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC)
	ref := provisioned.Meetings[0].MeetingRef
	events := []AttendanceEventInput{
		{MeetingRef: ref, ParticipantID: "student-zoom", EventType: models.AttendanceJoined, OccurredAt: start},
		{MeetingRef: ref, EventType: models.AttendanceEnded, OccurredAt: start.Add(45 * time.Minute)},
	}
	for _, event := range events {
		if err := attendance.RecordEvent(ctx, event); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	pending, err := service.RequestCompletion(ctx, tutorID, detail.ID)
	if err != nil {
		t.Fatalf("RequestCompletion: %v", err)
	}
	if pending.Status != models.SessionCompletedPending {
		t.Fatalf("expected completed_pending, got %q", pending.Status)
	}
	if pending.CompletionDeadline == nil {
		t.Fatal("expected a confirmation deadline")
	}

	completed, err := service.ConfirmCompletion(ctx, studentID, detail.ID)
	if err != nil {
		t.Fatalf("ConfirmCompletion: %v", err)
	}
	if completed.Status != models.SessionCompleted {
		t.Fatalf("expected completed, got %q", completed.Status)
	}

	entry, err := repository.NewEarningsRepository(pool).GetBySessionID(ctx, detail.ID)
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if entry.Status != models.EarningsSettled {
		t.Fatalf("expected settled earnings, got %q", entry.Status)
	}
	if entry.NetTokens != 34 {
		t.Fatalf("expected net 34 from gross 40, got %d", entry.NetTokens)
	}

	// Confirming again is a clean no-op on an already-completed session.
	again, err := service.ConfirmCompletion(ctx, studentID, detail.ID)
	if err != nil {
		t.Fatalf("second ConfirmCompletion: %v", err)
	}
	if again.Status != models.SessionCompleted {
		t.Fatalf("expected completed on redelivery, got %q", again.Status)
	}
}

func TestSessionServiceRequestCompletionRejectsShortAttendance(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service, attendance := newIntegrationSessionService(pool)

	studentID := createTestAccount(t, ctx, pool, "student", nil)
	tutorID := createTestAccount(t, ctx, pool, "tutor", map[string]int64{models.TypePrivateSession: 40})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	creditTokens(t, ctx, pool, studentID, 100)

	detail, err := service.BookSession(ctx, studentID, BookSessionInput{
		TutorID:     tutorID,
		SessionType: models.TypePrivateSession,
		Subject:     "Calculus",
		ScheduledAt: time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := service.AcceptSession(ctx, tutorID, detail.ID); err != nil {
		t.Fatalf("AcceptSession: %v", err)
	}
	provisioned, err := service.ProvisionMeetings(ctx, tutorID, detail.ID, ProvisionMeetingsInput{DurationMinutes: 60})
	if err != nil {
		t.Fatalf("ProvisionMeetings: %v", err)
	}

	start := time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC)
	ref := provisioned.Meetings[0].MeetingRef
	if err := attendance.RecordEvent(ctx, AttendanceEventInput{
		MeetingRef: ref, ParticipantID: "student-zoom", EventType: models.AttendanceJoined, OccurredAt: start,
	}); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := attendance.RecordEvent(ctx, AttendanceEventInput{
		MeetingRef: ref, EventType: models.AttendanceEnded, OccurredAt: start.Add(20 * time.Minute),
	}); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	_, err = service.RequestCompletion(ctx, tutorID, detail.ID)
	var tooShort *AttendanceTooShortError
	if !errors.As(err, &tooShort) {
		t.Fatalf("expected AttendanceTooShortError, got %v", err)
	}
	if tooShort.AttendedMinutes != 20 || tooShort.RequiredMinutes != 30 {
		t.Fatalf("unexpected attendance figures: %+v", tooShort)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationSessionService(pool *pgxpool.Pool) (*SessionService, *AttendanceService) {
	log := zerolog.Nop()
	attendance := NewAttendanceService(
		repository.NewAttendanceRepository(pool),
		repository.NewSessionRepository(pool),
		log,
	)
	service := NewSessionService(
		pool,
		repository.NewSessionRepository(pool),
		repository.NewEarningsRepository(pool),
		repository.NewUserRepository(pool),
		repository.NewTutorRepository(pool),
		NewCompletionArbiter(attendance),
		&fakeMeetingProvider{},
		NewLogNotifier(log),
		log,
	)
	return service, attendance
}

func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string, rates map[string]int64) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("session-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Name:         "Test " + role,
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}

	if role != "tutor" {
		return user.ID
	}

	tutorRepo := repository.NewTutorRepository(pool)
	if err := tutorRepo.CreateEmpty(ctx, user.ID); err != nil {
		t.Fatalf("CreateEmpty tutor profile: %v", err)
	}
	if _, err := tutorRepo.UpdateOnboarding(ctx, user.ID, repository.TutorOnboardingInput{
		DisplayName: "Test Tutor",
		Rates:       rates,
	}); err != nil {
		t.Fatalf("UpdateOnboarding tutor profile: %v", err)
	}

	return user.ID
}

func creditTokens(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userID int64, amount int64) {
	t.Helper()

	if _, err := repository.NewTokenRepository(pool).Credit(ctx, userID, amount); err != nil {
		t.Fatalf("Credit: %v", err)
	}
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "DELETE FROM attendance_events WHERE meeting_ref IN (SELECT meeting_ref FROM session_meetings WHERE session_id IN (SELECT id FROM sessions WHERE student_id = ANY($1) OR tutor_id = ANY($1)))", userIDs); err != nil {
		t.Fatalf("cleanup attendance events: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM earnings WHERE tutor_id = ANY($1) OR session_id IN (SELECT id FROM sessions WHERE student_id = ANY($1))", userIDs); err != nil {
		t.Fatalf("cleanup earnings: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM sessions WHERE student_id = ANY($1) OR tutor_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup sessions: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM payment_intents WHERE user_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup payment intents: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
