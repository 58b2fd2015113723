package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymap-backend/internal/models"
)

// fakeStore keeps sessions in memory behind a mutex. Transition hands the
// callback a clone and only commits it on success, mirroring the transactional
// contract of the real store. conflicts injects that many contention failures
// before transitions start succeeding again.
type fakeStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*models.Session
	conflicts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[uuid.UUID]*models.Session)}
}

func (f *fakeStore) Create(_ context.Context, sess *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.ID] = sess.Clone()
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (f *fakeStore) ActiveForUser(_ context.Context, userID uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sess := range f.sessions {
		if sess.IsActive && sess.HasMember(userID) {
			return sess.Clone(), nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Transition(_ context.Context, id uuid.UUID, fn func(*models.Session) error) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts > 0 {
		f.conflicts--
		return nil, fmt.Errorf("serialization failure: %w", models.ErrStoreContention)
	}
	sess, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	next := sess.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	f.sessions[id] = next
	return next.Clone(), nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	changed [][]uuid.UUID
	jobs    []models.StudyLogJob
}

func (n *fakeNotifier) SessionChanged(_ context.Context, userIDs ...uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, userIDs)
}

func (n *fakeNotifier) EnqueueStudyLog(_ context.Context, job models.StudyLogJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job)
}

func newTestService() (*Service, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	return NewService(store, notifier), store, notifier
}

func TestCreate(t *testing.T) {
	svc, _, notifier := newTestService()
	owner := uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionIndividual, "morning focus", nil)
	require.NoError(t, err)

	assert.Equal(t, owner, sess.OwnerID)
	assert.Equal(t, []uuid.UUID{owner}, sess.Members)
	assert.True(t, sess.IsActive)
	assert.Nil(t, sess.EndTime)
	assert.Len(t, notifier.changed, 1)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), uuid.Nil, models.SessionIndividual, "", nil)
	assert.ErrorIs(t, err, models.ErrInvalidActor)

	_, err = svc.Create(context.Background(), uuid.New(), models.SessionType("party"), "", nil)
	assert.ErrorIs(t, err, models.ErrInvalidSessionType)
}

func TestJoinAddsMember(t *testing.T) {
	svc, _, _ := newTestService()
	owner, joiner := uuid.New(), uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionCollab, "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Join(context.Background(), sess.ID, joiner))

	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{owner, joiner}, got.Members)
}

func TestJoinIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	owner := uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionQuietGroup, "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Join(context.Background(), sess.ID, owner))
	require.NoError(t, svc.Join(context.Background(), sess.ID, owner))

	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{owner}, got.Members)
	assert.Empty(t, got.PastMembers)
}

func TestJoinMigratesFromCurrentSession(t *testing.T) {
	svc, _, _ := newTestService()
	alice, bob := uuid.New(), uuid.New()

	first, err := svc.Create(context.Background(), alice, models.SessionIndividual, "", nil)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), bob, models.SessionCollab, "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Join(context.Background(), second.ID, alice))

	// Alice's solo session emptied out, so it ended.
	old, err := svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
	assert.NotNil(t, old.EndTime)
	assert.Equal(t, []uuid.UUID{alice}, old.PastMembers)

	active, err := svc.ActiveSessionFor(context.Background(), alice)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
}

func TestJoinMigrationKeepsOldSessionAliveForOthers(t *testing.T) {
	svc, _, _ := newTestService()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	first, err := svc.Create(context.Background(), alice, models.SessionCollab, "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Join(context.Background(), first.ID, bob))

	second, err := svc.Create(context.Background(), carol, models.SessionCollab, "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Join(context.Background(), second.ID, alice))

	old, err := svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.True(t, old.IsActive)
	assert.Equal(t, []uuid.UUID{bob}, old.Members)
	assert.Equal(t, []uuid.UUID{alice}, old.PastMembers)
}

func TestJoinMissingTargetKeepsCurrentMembership(t *testing.T) {
	svc, _, _ := newTestService()
	alice := uuid.New()

	sess, err := svc.Create(context.Background(), alice, models.SessionIndividual, "", nil)
	require.NoError(t, err)

	err = svc.Join(context.Background(), uuid.New(), alice)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	// The failed join must not have migrated Alice out of her session.
	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, []uuid.UUID{alice}, got.Members)
	assert.Empty(t, got.PastMembers)
}

func TestJoinEndedTargetKeepsCurrentMembership(t *testing.T) {
	svc, _, _ := newTestService()
	alice, bob := uuid.New(), uuid.New()

	ended, err := svc.Create(context.Background(), bob, models.SessionCollab, "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(context.Background(), ended.ID, bob))

	sess, err := svc.Create(context.Background(), alice, models.SessionIndividual, "", nil)
	require.NoError(t, err)

	err = svc.Join(context.Background(), ended.ID, alice)
	assert.ErrorIs(t, err, models.ErrSessionInactive)

	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, []uuid.UUID{alice}, got.Members)
}

func TestJoinEndedSessionFails(t *testing.T) {
	svc, _, _ := newTestService()
	owner, joiner := uuid.New(), uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionIndividual, "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(context.Background(), sess.ID, owner))

	err = svc.Join(context.Background(), sess.ID, joiner)
	assert.ErrorIs(t, err, models.ErrSessionInactive)
}

func TestLeaveLastMemberEndsSession(t *testing.T) {
	svc, _, notifier := newTestService()
	owner := uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionIndividual, "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(context.Background(), sess.ID, owner))

	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.EndTime)
	assert.Empty(t, got.Members)
	assert.Equal(t, []uuid.UUID{owner}, got.PastMembers)

	require.Len(t, notifier.jobs, 1)
	assert.Equal(t, owner, notifier.jobs[0].UserID)
	assert.Equal(t, sess.ID, notifier.jobs[0].SessionID)
}

func TestLeaveNonMemberIsNoop(t *testing.T) {
	svc, _, notifier := newTestService()
	owner, stranger := uuid.New(), uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionCollab, "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), sess.ID, stranger))

	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, []uuid.UUID{owner}, got.Members)
	assert.Empty(t, got.PastMembers)
	assert.Empty(t, notifier.jobs)
}

func TestRejoinAfterLeave(t *testing.T) {
	svc, _, _ := newTestService()
	owner, member := uuid.New(), uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionCollab, "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Join(context.Background(), sess.ID, member))
	require.NoError(t, svc.Leave(context.Background(), sess.ID, member))
	require.NoError(t, svc.Join(context.Background(), sess.ID, member))

	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{owner, member}, got.Members)
	// Past membership is recorded once, even across rejoins.
	assert.Equal(t, []uuid.UUID{member}, got.PastMembers)
}

func TestEndedSessionStaysEnded(t *testing.T) {
	svc, _, _ := newTestService()
	owner := uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionIndividual, "", nil)
	require.NoError(t, err)

	ended, err := svc.End(context.Background(), sess.ID, owner)
	require.NoError(t, err)
	assert.True(t, ended)

	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	firstEnd := got.EndTime
	require.NotNil(t, firstEnd)

	// A second leave is a no-op and must not move the end time.
	require.NoError(t, svc.Leave(context.Background(), sess.ID, owner))
	got, err = svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, firstEnd, got.EndTime)
}

func TestEndReportsStillActive(t *testing.T) {
	svc, _, _ := newTestService()
	owner, member := uuid.New(), uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionCollab, "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Join(context.Background(), sess.ID, member))

	ended, err := svc.End(context.Background(), sess.ID, owner)
	require.NoError(t, err)
	assert.False(t, ended)
}

func TestExclusivity(t *testing.T) {
	svc, _, _ := newTestService()
	alice := uuid.New()

	_, err := svc.Create(context.Background(), alice, models.SessionIndividual, "", nil)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), uuid.New(), models.SessionCollab, "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Join(context.Background(), second.ID, alice))

	active, err := svc.ActiveSessionFor(context.Background(), alice)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
}

func TestElapsed(t *testing.T) {
	svc, _, _ := newTestService()
	owner := uuid.New()

	base := time.Now()
	svc.now = func() time.Time { return base }

	_, err := svc.Create(context.Background(), owner, models.SessionIndividual, "", nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(90 * time.Second) }
	elapsed, err := svc.Elapsed(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 90, elapsed)

	// No active session reads as zero, not an error.
	other := uuid.New()
	elapsed, err = svc.Elapsed(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, 0, elapsed)
}

func TestTransitionRetriesOnContention(t *testing.T) {
	svc, store, _ := newTestService()
	owner := uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionIndividual, "", nil)
	require.NoError(t, err)

	store.conflicts = storeRetries - 1
	require.NoError(t, svc.Leave(context.Background(), sess.ID, owner))

	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestTransitionGivesUpAfterRetries(t *testing.T) {
	svc, store, _ := newTestService()
	owner := uuid.New()

	sess, err := svc.Create(context.Background(), owner, models.SessionIndividual, "", nil)
	require.NoError(t, err)

	store.conflicts = storeRetries
	err = svc.Leave(context.Background(), sess.ID, owner)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreContention)

	// The session is untouched after the failed transition.
	got, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, []uuid.UUID{owner}, got.Members)
}

func TestNilActor(t *testing.T) {
	svc, _, _ := newTestService()
	sessID := uuid.New()

	assert.ErrorIs(t, svc.Join(context.Background(), sessID, uuid.Nil), models.ErrInvalidActor)
	assert.ErrorIs(t, svc.Leave(context.Background(), sessID, uuid.Nil), models.ErrInvalidActor)
	_, err := svc.ActiveSessionFor(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, models.ErrInvalidActor)
}
