package presence

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"studymap-backend/internal/events"
	"studymap-backend/internal/models"
)

// resyncInterval drives the periodic pass that re-resolves the followee list,
// retries failed per-followee watches and re-emits the view so staleness
// flags stay honest between location updates.
const resyncInterval = time.Minute

type FollowSource interface {
	Followees(ctx context.Context, viewerID uuid.UUID) ([]models.FollowedUser, error)
}

type SessionSource interface {
	ActiveSessionFor(ctx context.Context, userID uuid.UUID) (*models.Session, error)
}

type SampleSource interface {
	Last(ctx context.Context, userID uuid.UUID) (*models.Sample, error)
}

// Feed delivers change notifications for a set of channels. The events.Bus
// satisfies this over redis pub/sub.
type Feed interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan string, func(), error)
}

// Aggregator produces, per viewer, a continuously updated view of every
// followee's presence and session status. Each followee is an isolated
// failure domain: a broken watch is logged and that entry omitted until a
// later resync picks it up, while the rest of the view keeps flowing.
type Aggregator struct {
	follows  FollowSource
	sessions SessionSource
	samples  SampleSource
	feed     Feed
	now      func() time.Time
	resync   time.Duration
}

func NewAggregator(follows FollowSource, sessions SessionSource, samples SampleSource, feed Feed) *Aggregator {
	return &Aggregator{
		follows:  follows,
		sessions: sessions,
		samples:  samples,
		feed:     feed,
		now:      time.Now,
		resync:   resyncInterval,
	}
}

// Subscribe starts a live aggregated view for viewerID. onUpdate receives a
// fresh snapshot after every change; snapshots are complete copies, so a
// consumer never observes an entry mid-mutation. The returned function tears
// the subscription down.
func (a *Aggregator) Subscribe(ctx context.Context, viewerID uuid.UUID, onUpdate func(models.PresenceView)) (func(), error) {
	if viewerID == uuid.Nil {
		return nil, models.ErrInvalidActor
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		agg:      a,
		viewerID: viewerID,
		onUpdate: onUpdate,
		ctx:      ctx,
		cancel:   cancel,
		entries:  make(map[uuid.UUID]models.PresenceEntry),
		watches:  make(map[uuid.UUID]func()),
	}

	// The initial followee resolution is the only hard failure; everything
	// after degrades per followee.
	followees, err := a.follows.Followees(ctx, viewerID)
	if err != nil {
		cancel()
		return nil, err
	}
	sub.apply(followees)

	// Follow/unfollow invalidates the watch set.
	followCh, stopFollow, err := a.feed.Subscribe(ctx, events.FollowChannel(viewerID))
	if err != nil {
		log.Printf("presence: viewer %s: follow feed unavailable, relying on periodic resync: %v", viewerID, err)
	} else {
		go func() {
			defer stopFollow()
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-followCh:
					if !ok {
						return
					}
					sub.resync()
				}
			}
		}()
	}

	go sub.tick()

	sub.emit()
	return sub.stop, nil
}

// subscription is the state of one viewer's live view.
type subscription struct {
	agg      *Aggregator
	viewerID uuid.UUID
	onUpdate func(models.PresenceView)
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	entries map[uuid.UUID]models.PresenceEntry
	watches map[uuid.UUID]func()

	emitMu sync.Mutex
}

func (s *subscription) stop() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, stopWatch := range s.watches {
		stopWatch()
		delete(s.watches, id)
	}
}

func (s *subscription) tick() {
	ticker := time.NewTicker(s.agg.resync)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.resync()
		}
	}
}

func (s *subscription) resync() {
	followees, err := s.agg.follows.Followees(s.ctx, s.viewerID)
	if err != nil {
		log.Printf("presence: viewer %s: resolve followees: %v", s.viewerID, err)
		return
	}
	s.apply(followees)
	s.emit()
}

// apply reconciles the watch set against the current followee list: new
// followees get a watch, unfollowed users lose theirs and their entry.
func (s *subscription) apply(followees []models.FollowedUser) {
	desired := make(map[uuid.UUID]models.FollowedUser, len(followees))
	for _, f := range followees {
		desired[f.ID] = f
	}

	s.mu.Lock()
	for id, stopWatch := range s.watches {
		if _, keep := desired[id]; !keep {
			stopWatch()
			delete(s.watches, id)
			delete(s.entries, id)
		}
	}
	var toStart []models.FollowedUser
	for id, f := range desired {
		if _, watching := s.watches[id]; !watching {
			toStart = append(toStart, f)
		}
	}
	s.mu.Unlock()

	for _, f := range toStart {
		s.startWatch(f)
	}
}

// startWatch subscribes to one followee's presence and session channels and
// keeps that followee's entry current. A setup failure is logged and the
// entry omitted; the next resync retries.
func (s *subscription) startWatch(f models.FollowedUser) {
	ch, stopFeed, err := s.agg.feed.Subscribe(s.ctx, events.PresenceChannel(f.ID), events.SessionChannel(f.ID))
	if err != nil {
		log.Printf("presence: viewer %s: watch %s: %v", s.viewerID, f.ID, err)
		return
	}

	s.mu.Lock()
	if _, exists := s.watches[f.ID]; exists || s.ctx.Err() != nil {
		s.mu.Unlock()
		stopFeed()
		return
	}
	s.watches[f.ID] = stopFeed
	s.mu.Unlock()

	go func() {
		s.refresh(f)
		s.emit()
		for {
			select {
			case <-s.ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				s.refresh(f)
				s.emit()
			}
		}
	}()
}

// refresh rebuilds one followee's entry from the latest presence sample and
// session snapshot, then swaps it in as a single assignment. Other entries
// are never touched, and a consumer can never see a half-old, half-new entry.
func (s *subscription) refresh(f models.FollowedUser) {
	sample, err := s.agg.samples.Last(s.ctx, f.ID)
	if err != nil {
		log.Printf("presence: viewer %s: load sample for %s: %v", s.viewerID, f.ID, err)
		return
	}
	sess, err := s.agg.sessions.ActiveSessionFor(s.ctx, f.ID)
	if err != nil {
		log.Printf("presence: viewer %s: load session for %s: %v", s.viewerID, f.ID, err)
		return
	}

	entry := models.PresenceEntry{
		UserID:      f.ID,
		DisplayName: f.DisplayName,
		Location:    sample,
	}
	if sess != nil {
		t := sess.Type
		entry.SessionType = &t
	}

	s.mu.Lock()
	if _, watching := s.watches[f.ID]; watching {
		s.entries[f.ID] = entry
	}
	s.mu.Unlock()
}

// emit snapshots the view and delivers it. Staleness is computed here, at
// read time, so it self-corrects on the periodic tick without any writes.
// Callbacks are serialized so the consumer sees views in order.
func (s *subscription) emit() {
	now := s.agg.now()

	s.mu.Lock()
	view := models.PresenceView{
		ViewerID:    s.viewerID,
		GeneratedAt: now,
		Followees:   make([]models.PresenceEntry, 0, len(s.entries)),
	}
	for _, entry := range s.entries {
		entry.IsStale = entry.Location.IsStale(now)
		view.Followees = append(view.Followees, entry)
	}
	s.mu.Unlock()

	sort.Slice(view.Followees, func(i, j int) bool {
		a, b := view.Followees[i], view.Followees[j]
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.UserID.String() < b.UserID.String()
	})

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	s.onUpdate(view)
}
