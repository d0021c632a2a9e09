package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/repository"
	"github.com/rs/zerolog"
)

// refundOnCancellation controls whether the student's debited tokens are
// returned when a session is cancelled. The original platform never
// refunded; that looked like an omission rather than intent, so the policy
// is explicit here and defaults to refunding.
const refundOnCancellation = true

// completionConfirmWindow is how long the student has to confirm a
// completion request before the sweeper finalizes it.
const completionConfirmWindow = 24 * time.Hour

// provisionTimeout bounds each meeting-provisioning call so a slow provider
// cannot hold a request open indefinitely.
const provisionTimeout = 30 * time.Second

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type tutorReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error)
	GetRate(ctx context.Context, tutorID int64, sessionType string) (int64, error)
}

// SessionService owns the session lifecycle. Every transition is an atomic
// conditional update; no other component writes session status.
type SessionService struct {
	db              *pgxpool.Pool
	sessionRepo     *repository.SessionRepository
	earningsRepo    *repository.EarningsRepository
	userRepo        userReader
	tutorRepo       tutorReader
	arbiter         *CompletionArbiter
	meetingProvider MeetingProvider
	notifier        Notifier
	log             zerolog.Logger
	now             func() time.Time
}

func NewSessionService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	earningsRepo *repository.EarningsRepository,
	userRepo userReader,
	tutorRepo tutorReader,
	arbiter *CompletionArbiter,
	meetingProvider MeetingProvider,
	notifier Notifier,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		db:              db,
		sessionRepo:     sessionRepo,
		earningsRepo:    earningsRepo,
		userRepo:        userRepo,
		tutorRepo:       tutorRepo,
		arbiter:         arbiter,
		meetingProvider: meetingProvider,
		notifier:        notifier,
		log:             log,
		now:             time.Now,
	}
}

type BookSessionInput struct {
	TutorID     int64
	SessionType string
	Subject     string
	ScheduledAt time.Time
}

// BookSession creates the session and debits the student's tokens in one
// transaction; both happen or neither does.
func (s *SessionService) BookSession(
	ctx context.Context,
	studentID int64,
	input BookSessionInput,
) (*models.SessionDetail, error) {
	if input.TutorID <= 0 || strings.TrimSpace(input.Subject) == "" {
		return nil, ErrInvalidInput
	}
	if !models.ValidSessionType(input.SessionType) {
		return nil, ErrInvalidInput
	}
	if input.TutorID == studentID {
		return nil, ErrInvalidInput
	}
	if input.ScheduledAt.Before(s.now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}

	tutor, err := s.userRepo.GetByID(ctx, input.TutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	if tutor.Role != "tutor" {
		return nil, ErrInvalidInput
	}

	profile, err := s.tutorRepo.GetByUserID(ctx, input.TutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	if !profile.OnboardingComplete {
		return nil, ErrInvalidInput
	}

	// Price is read from the tutor's published rate once, here. Later rate
	// changes never touch a booked session.
	price, err := s.tutorRepo.GetRate(ctx, input.TutorID, input.SessionType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidInput
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txTokenRepo := repository.NewTokenRepository(tx)
	txSessionRepo := repository.NewSessionRepository(tx)

	if _, err := txTokenRepo.Debit(ctx, studentID, price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			balance, balErr := txTokenRepo.Balance(ctx, studentID)
			if balErr != nil {
				return nil, balErr
			}
			return nil, &InsufficientTokensError{Required: price, Balance: balance}
		}
		return nil, err
	}

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		TutorID:      input.TutorID,
		StudentID:    studentID,
		SessionType:  input.SessionType,
		Subject:      strings.TrimSpace(input.Subject),
		ScheduledAt:  input.ScheduledAt.UTC(),
		AmountTokens: price,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	student, _ := s.userRepo.GetByID(ctx, studentID)
	studentName := ""
	if student != nil {
		studentName = student.Name
	}
	dispatchNotification(s.notifier, s.log, tutor.Email,
		"New Tutoring Session Scheduled",
		fmt.Sprintf(
			"A new %s session for %q has been scheduled with you by %s on %s.",
			session.SessionType, session.Subject, studentName,
			session.ScheduledAt.Format(time.RFC1123),
		))

	return &models.SessionDetail{Session: *session}, nil
}

// AcceptSession moves an upcoming session to accepted and records the
// tutor's expected earnings in the same transaction.
func (s *SessionService) AcceptSession(
	ctx context.Context,
	tutorID int64,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TutorID != tutorID {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	updated, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx, sessionID, models.SessionUpcoming, models.SessionAccepted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.resolveTransitionRace(ctx, sessionID, models.SessionAccepted)
		}
		return nil, err
	}

	earnings := NewEarningsService(repository.NewEarningsRepository(tx))
	if err := earnings.RecordExpected(ctx, updated); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if student, err := s.userRepo.GetByID(ctx, session.StudentID); err == nil {
		dispatchNotification(s.notifier, s.log, student.Email,
			"Your Session Request Has Been Accepted",
			fmt.Sprintf("Your session request for %q has been accepted by the tutor.", session.Subject))
	}

	return s.detail(ctx, updated)
}

// CancelSession cancels with role-scoped guards: tutors may cancel while the
// session is still upcoming, students once it has been accepted.
func (s *SessionService) CancelSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	reason string,
) (*models.SessionDetail, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var expectedStatus string
	switch role {
	case "tutor":
		if session.TutorID != actorID {
			return nil, ErrForbidden
		}
		expectedStatus = models.SessionUpcoming
	case "student":
		if session.StudentID != actorID {
			return nil, ErrForbidden
		}
		expectedStatus = models.SessionAccepted
	default:
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	cancelled, err := txSessionRepo.CancelIfCurrent(ctx, sessionID, expectedStatus, strings.TrimSpace(reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.resolveTransitionRace(ctx, sessionID, models.SessionCancelled)
		}
		return nil, err
	}

	if refundOnCancellation {
		txTokenRepo := repository.NewTokenRepository(tx)
		if _, err := txTokenRepo.Credit(ctx, cancelled.StudentID, cancelled.AmountTokens); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	counterpartID := cancelled.StudentID
	cancelledBy := "tutor"
	if role == "student" {
		counterpartID = cancelled.TutorID
		cancelledBy = "student"
	}
	if counterpart, err := s.userRepo.GetByID(ctx, counterpartID); err == nil {
		dispatchNotification(s.notifier, s.log, counterpart.Email,
			"Session Cancellation Notification",
			fmt.Sprintf("The session %q has been cancelled by the %s. Reason: %s",
				cancelled.Subject, cancelledBy, reason))
	}

	return s.detail(ctx, cancelled)
}

type ProvisionMeetingsInput struct {
	DurationMinutes int
}

// ProvisionMeetings creates provider meetings for an accepted session,
// chunking the requested duration into provider-cap parts. Refs are stored
// once; a second call while refs exist is rejected.
func (s *SessionService) ProvisionMeetings(
	ctx context.Context,
	tutorID int64,
	sessionID int64,
	input ProvisionMeetingsInput,
) (*models.SessionDetail, error) {
	if input.DurationMinutes <= 0 {
		return nil, ErrInvalidInput
	}
	if s.meetingProvider == nil {
		return nil, ErrUpstreamUnavailable
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TutorID != tutorID {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionAccepted {
		return nil, ErrInvalidTransition
	}

	existing, err := s.sessionRepo.ListMeetings(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrMeetingsProvisioned
	}

	profile, err := s.tutorRepo.GetByUserID(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	// Provision every part before persisting anything, so a provider
	// failure leaves the session without refs and safely retryable.
	parts := meetingParts(input.DurationMinutes)
	provisioned := make([]*ProvisionedMeeting, 0, len(parts))
	for i, partMinutes := range parts {
		callCtx, cancel := context.WithTimeout(ctx, provisionTimeout)
		startTime := session.ScheduledAt.Add(time.Duration(i*maxMeetingMinutes) * time.Minute)
		topic := session.Subject
		if len(parts) > 1 {
			topic = fmt.Sprintf("%s (Part %d)", session.Subject, i+1)
		}
		meeting, err := s.meetingProvider.CreateMeeting(callCtx, topic, startTime, partMinutes, profile.DisplayName)
		cancel()
		if err != nil {
			return nil, err
		}
		provisioned = append(provisioned, meeting)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	for i, meeting := range provisioned {
		if _, err := txSessionRepo.AddMeeting(ctx, sessionID, i+1, meeting.MeetingRef, meeting.JoinURL); err != nil {
			// A concurrent call can pass the refs-exist check and insert
			// first; the unique constraint decides the winner.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, ErrMeetingsProvisioned
			}
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	links := make([]string, 0, len(provisioned))
	for i, meeting := range provisioned {
		links = append(links, fmt.Sprintf("Part %d: %s", i+1, meeting.JoinURL))
	}
	body := fmt.Sprintf("Join the meetings for %q using the links below:\n%s",
		session.Subject, strings.Join(links, "\n"))
	for _, userID := range []int64{session.TutorID, session.StudentID} {
		if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
			dispatchNotification(s.notifier, s.log, user.Email,
				"Meeting Links for Your Tutoring Session", body)
		}
	}

	return s.detail(ctx, session)
}

// RequestCompletion asks the Completion Arbiter whether recorded attendance
// qualifies, then moves the session to completed_pending with a confirmation
// deadline set exactly once.
func (s *SessionService) RequestCompletion(
	ctx context.Context,
	tutorID int64,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TutorID != tutorID {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionAccepted {
		return nil, ErrInvalidTransition
	}

	if err := s.arbiter.Approve(ctx, session); err != nil {
		return nil, err
	}

	requestedAt := s.now().UTC()
	updated, err := s.sessionRepo.MarkCompletionPending(
		ctx, sessionID, requestedAt, requestedAt.Add(completionConfirmWindow),
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.resolveTransitionRace(ctx, sessionID, models.SessionCompletedPending)
		}
		return nil, err
	}

	if student, err := s.userRepo.GetByID(ctx, session.StudentID); err == nil {
		dispatchNotification(s.notifier, s.log, student.Email,
			"Session Completion Pending Confirmation",
			fmt.Sprintf(
				"The session %q has been marked as complete by your tutor. Please confirm within 24 hours.",
				session.Subject))
	}

	return s.detail(ctx, updated)
}

// ConfirmCompletion is the student's explicit confirmation: the session
// completes and the tutor's earnings settle, atomically.
func (s *SessionService) ConfirmCompletion(
	ctx context.Context,
	studentID int64,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.StudentID != studentID {
		return nil, ErrForbidden
	}

	completed, err := s.completeAndSettle(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for _, userID := range []int64{completed.TutorID, completed.StudentID} {
		if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
			dispatchNotification(s.notifier, s.log, user.Email,
				"Session Completed",
				fmt.Sprintf("The session %q has been successfully marked as completed.", completed.Subject))
		}
	}

	return s.detail(ctx, completed)
}

// CompleteExpired performs the fallback completion for a past-deadline
// session. It is used by the scheduled sweeper; the CAS means sweeps may
// overlap freely, with losers degrading to no-ops.
func (s *SessionService) CompleteExpired(ctx context.Context, sessionID int64) (*models.Session, error) {
	completed, err := s.completeAndSettle(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for _, userID := range []int64{completed.TutorID, completed.StudentID} {
		if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
			dispatchNotification(s.notifier, s.log, user.Email,
				"Session Completed Automatically",
				fmt.Sprintf(
					"The session %q has been automatically marked as completed after the 24-hour confirmation period.",
					completed.Subject))
		}
	}
	return completed, nil
}

// completeAndSettle is the shared terminal transition: CAS into completed
// plus earnings settlement inside one transaction.
func (s *SessionService) completeAndSettle(ctx context.Context, sessionID int64) (*models.Session, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	completed, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx, sessionID, models.SessionCompletedPending, models.SessionCompleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, getErr := s.sessionRepo.GetByID(ctx, sessionID)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status == models.SessionCompleted {
				return current, nil
			}
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	earnings := NewEarningsService(repository.NewEarningsRepository(tx))
	if err := earnings.Finalize(ctx, sessionID, s.now().UTC()); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return completed, nil
}

func (s *SessionService) ListSessions(
	ctx context.Context,
	actorID int64,
	role string,
	filter repository.SessionListFilter,
) ([]models.SessionDetail, error) {
	sessions, err := s.sessionRepo.List(ctx, repository.SessionListFilter{
		ActorID:   actorID,
		Role:      role,
		Status:    filter.Status,
		Timeframe: filter.Timeframe,
	})
	if err != nil {
		return nil, err
	}

	details := make([]models.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		details = append(details, models.SessionDetail{Session: session})
	}
	return details, nil
}

func (s *SessionService) GetSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, ErrForbidden
	}
	return s.detail(ctx, session)
}

// detail assembles the read model from the owned stores: the session, its
// meetings, and (for the tutor side) the earnings entry.
func (s *SessionService) detail(ctx context.Context, session *models.Session) (*models.SessionDetail, error) {
	detail := &models.SessionDetail{Session: *session}

	meetings, err := s.sessionRepo.ListMeetings(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	detail.Meetings = meetings

	entry, err := s.earningsRepo.GetBySessionID(ctx, session.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Earnings = entry
	}
	return detail, nil
}

// resolveTransitionRace handles a lost conditional update: when the session
// already reached the target state the loser returns it as a clean no-op,
// otherwise the transition was illegal.
func (s *SessionService) resolveTransitionRace(
	ctx context.Context,
	sessionID int64,
	targetStatus string,
) (*models.SessionDetail, error) {
	current, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.Status == targetStatus {
		return s.detail(ctx, current)
	}
	return nil, ErrInvalidTransition
}

func canAccessSession(role string, actorID int64, session *models.Session) bool {
	if role == "student" {
		return session.StudentID == actorID
	}
	if role == "tutor" {
		return session.TutorID == actorID
	}
	return false
}

// meetingParts splits a requested duration into provider-sized chunks.
func meetingParts(durationMinutes int) []int {
	parts := make([]int, 0, (durationMinutes+maxMeetingMinutes-1)/maxMeetingMinutes)
	for remaining := durationMinutes; remaining > 0; remaining -= maxMeetingMinutes {
		part := remaining
		if part > maxMeetingMinutes {
			part = maxMeetingMinutes
		}
		parts = append(parts, part)
	}
	return parts
}
