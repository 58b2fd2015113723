package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"studymap-backend/internal/models"
)

// storeRetries bounds how many times a membership transition is retried when
// the store reports contention. Each attempt re-reads fresh state.
const storeRetries = 3

// Store is the transactional backing for sessions. Transition must load the
// session and its membership atomically, apply fn, and persist the result in
// the same transaction; concurrent transitions against the same session id
// must be serialized. Contention surfaces as models.ErrStoreContention.
type Store interface {
	Create(ctx context.Context, sess *models.Session) error
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ActiveForUser(ctx context.Context, userID uuid.UUID) (*models.Session, error)
	Transition(ctx context.Context, id uuid.UUID, fn func(*models.Session) error) (*models.Session, error)
}

// Notifier fans session changes out to the presence layer and hands finished
// participation stretches to the study-log queue. Both are fire-and-forget
// from the service's point of view: a failed notification never rolls back a
// committed transition.
type Notifier interface {
	SessionChanged(ctx context.Context, userIDs ...uuid.UUID)
	EnqueueStudyLog(ctx context.Context, job models.StudyLogJob)
}

type nopNotifier struct{}

func (nopNotifier) SessionChanged(context.Context, ...uuid.UUID) {}

func (nopNotifier) EnqueueStudyLog(context.Context, models.StudyLogJob) {}

// Service owns the session lifecycle rules: creation, idempotent join/leave,
// the empty-members-implies-ended invariant, and current-session exclusivity.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

func NewService(store Store, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{store: store, notifier: notifier, now: time.Now}
}

// Create starts a new session with the owner as its only member.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, sessionType models.SessionType, description string, spaceID *uuid.UUID) (*models.Session, error) {
	if ownerID == uuid.Nil {
		return nil, models.ErrInvalidActor
	}
	if !sessionType.Valid() {
		return nil, models.ErrInvalidSessionType
	}

	sess := &models.Session{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Type:        sessionType,
		Description: description,
		SpaceID:     spaceID,
		Members:     []uuid.UUID{ownerID},
		IsActive:    true,
		StartTime:   s.now(),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.notifier.SessionChanged(ctx, ownerID)
	return sess, nil
}

// Join adds userID to the target session. The target must exist and still be
// active before anything else happens: a failed join never disturbs the
// caller's current membership. If the user is currently a member of a
// different active session they are migrated out of it first; if that removal
// empties the old session, the old session ends. Joining a session the user is
// already in is a no-op success. The auto-leave and the join are two separate
// transactions: a crash between them can leave the user in neither session,
// never in both.
func (s *Service) Join(ctx context.Context, sessionID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return models.ErrInvalidActor
	}

	target, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !target.IsActive {
		return models.ErrSessionInactive
	}

	current, err := s.store.ActiveForUser(ctx, userID)
	if err != nil {
		return err
	}
	if current != nil {
		if current.ID == sessionID {
			return nil
		}
		if err := s.Leave(ctx, current.ID, userID); err != nil {
			return fmt.Errorf("leaving current session %s: %w", current.ID, err)
		}
	}

	joined, err := s.transition(ctx, sessionID, func(sess *models.Session) error {
		// Re-checked under the row lock; the target may have ended between
		// the precheck and this transaction.
		if !sess.IsActive {
			return models.ErrSessionInactive
		}
		sess.AddMember(userID)
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.SessionChanged(ctx, joined.Members...)
	return nil
}

// Leave removes userID from the session's members and records them as a past
// member. When the last member leaves, the session is deactivated and its end
// time set in the same transition. Leaving a session the user is not a member
// of is a no-op success.
func (s *Service) Leave(ctx context.Context, sessionID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return models.ErrInvalidActor
	}

	var (
		wasMember bool
		started   time.Time
		sType     models.SessionType
	)
	after, err := s.transition(ctx, sessionID, func(sess *models.Session) error {
		wasMember = sess.RemoveMember(userID)
		started = sess.StartTime
		sType = sess.Type
		if wasMember && len(sess.Members) == 0 {
			end := s.now()
			sess.IsActive = false
			sess.EndTime = &end
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !wasMember {
		return nil
	}

	s.notifier.SessionChanged(ctx, append([]uuid.UUID{userID}, after.Members...)...)
	s.notifier.EnqueueStudyLog(ctx, models.StudyLogJob{
		UserID:      userID,
		SessionID:   sessionID,
		SessionType: sType,
		StartedAt:   started,
		EndedAt:     s.now(),
	})
	return nil
}

// End is Leave for the requesting user, reporting whether the session is now
// fully inactive.
func (s *Service) End(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	if err := s.Leave(ctx, sessionID, userID); err != nil {
		return false, err
	}
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return !sess.IsActive, nil
}

// ActiveSessionFor returns the session userID is currently a member of, or
// nil. By the exclusivity invariant there is at most one.
func (s *Service) ActiveSessionFor(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	if userID == uuid.Nil {
		return nil, models.ErrInvalidActor
	}
	return s.store.ActiveForUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return s.store.Get(ctx, sessionID)
}

// Elapsed reports seconds since the user's active session started, zero when
// the user has no active session.
func (s *Service) Elapsed(ctx context.Context, userID uuid.UUID) (int, error) {
	sess, err := s.ActiveSessionFor(ctx, userID)
	if err != nil {
		return 0, err
	}
	return sess.Elapsed(s.now()), nil
}

// transition runs a membership transition, retrying on store contention with
// freshly-read state. A transition is never partially applied: it either
// commits whole or the store rolls it back.
func (s *Service) transition(ctx context.Context, sessionID uuid.UUID, fn func(*models.Session) error) (*models.Session, error) {
	var lastErr error
	for attempt := 1; attempt <= storeRetries; attempt++ {
		sess, err := s.store.Transition(ctx, sessionID, fn)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, models.ErrStoreContention) {
			return nil, err
		}
		lastErr = err
		log.Printf("session %s: transition contention (attempt %d/%d)", sessionID, attempt, storeRetries)
	}
	return nil, fmt.Errorf("transition on session %s did not settle after %d attempts: %w", sessionID, storeRetries, lastErr)
}
