/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player implements the ambient playback session: a per-tenant queue
// driven by an audio sink, a resolver that builds queues from the track
// library, and an arbiter that switches playlists on schedule.
package player

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/ambientfm/internal/assets"
	"github.com/friendsincode/ambientfm/internal/events"
	"github.com/friendsincode/ambientfm/internal/models"
)

// TrackStore supplies the tenant's ambient shuffle pool.
type TrackStore interface {
	ShuffleTracks(ctx context.Context, tenantID string) ([]models.Track, error)
}

// PlaylistStore supplies curated playlists and their track lists.
type PlaylistStore interface {
	Playlist(ctx context.Context, id string) (*models.Playlist, error)
	PlaylistTracks(ctx context.Context, id string) ([]models.Track, error)
}

// ScheduleStore supplies the tenant's active schedule rules.
type ScheduleStore interface {
	ActiveSchedules(ctx context.Context, tenantID string) ([]models.Schedule, error)
}

const defaultPollInterval = 10 * time.Second

// Service owns one playback session. All exported methods are safe for
// concurrent use.
type Service struct {
	tracks    TrackStore
	playlists PlaylistStore
	schedules ScheduleStore
	resolver  assets.Resolver
	sink      Sink
	bus       *events.Bus
	logger    zerolog.Logger

	pollInterval time.Duration
	now          func() time.Time
	rng          *rand.Rand

	mu             sync.Mutex
	tenantID       string
	initialized    bool
	userInteracted bool

	queue   []models.Track
	index   int
	current *models.Track
	loaded  bool
	playing bool
	volume  float64

	shuffleAll     bool
	activePlaylist *PlaylistInfo
	rules          []models.Schedule
	activeSchedule *models.Schedule

	// generation invalidates in-flight queue fetches when a newer switch
	// starts before an older one finishes.
	generation uint64

	listeners  map[int]Listener
	listenerID int
	order      []int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithPollInterval overrides the schedule arbitration interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandSource overrides the shuffle entropy source. Used by tests.
func WithRandSource(src rand.Source) Option {
	return func(s *Service) { s.rng = rand.New(src) }
}

// New creates an idle playback service. Call Initialize to start a session.
func New(tracks TrackStore, playlists PlaylistStore, schedules ScheduleStore, resolver assets.Resolver, sink Sink, bus *events.Bus, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		tracks:       tracks,
		playlists:    playlists,
		schedules:    schedules,
		resolver:     resolver,
		sink:         sink,
		bus:          bus,
		logger:       logger.With().Str("component", "player").Logger(),
		pollInterval: defaultPollInterval,
		now:          time.Now,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		volume:       1.0,
		listeners:    make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize starts a session for tenantID: the shuffle pool becomes the
// queue at a random position, schedule rules are fetched, and the arbiter
// and sink loops start. Calling it again for the same tenant is a no-op;
// calling it for a different tenant tears the session down and rebuilds it,
// keeping registered listeners. Playback begins only after a user
// interaction has been recorded.
func (s *Service) Initialize(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	if s.initialized && s.tenantID == tenantID {
		s.mu.Unlock()
		return nil
	}
	switched := s.initialized
	if switched {
		s.teardownLocked()
	}

	s.tenantID = tenantID
	s.initialized = true
	s.generation++
	s.shuffleAll = true
	s.activePlaylist = nil
	s.activeSchedule = nil
	sessionCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	autoplay := s.userInteracted
	s.mu.Unlock()

	if switched {
		// Old loops exit on their cancelled context before the new ones
		// take over the sink event channel.
		s.wg.Wait()
	}

	s.logger.Info().Str("tenant_id", tenantID).Bool("switched", switched).Msg("session initialized")

	tracks, err := s.tracks.ShuffleTracks(ctx, tenantID)
	if err != nil {
		s.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("shuffle pool fetch failed")
	}

	rules, err := s.schedules.ActiveSchedules(ctx, tenantID)
	if err != nil {
		s.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("schedule fetch failed")
		rules = nil
	}

	s.mu.Lock()
	s.rules = rules
	s.queue = shuffleTracks(tracks, s.rng)
	s.index = 0
	if len(s.queue) > 0 {
		s.index = s.rng.Intn(len(s.queue))
		s.loadTrackLocked(s.index)
		if autoplay {
			s.playLocked()
		}
	}
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.wg.Add(2)
	go s.pollLoop(sessionCtx)
	go s.sinkEventLoop(sessionCtx)

	// Arbitrate immediately so a rule already inside its window takes over
	// without waiting for the first tick.
	s.tick()

	s.notify(listeners, snap)
	if switched {
		s.publish(events.EventTenantSwitched, snap)
	}
	s.publish(events.EventPlayerState, snap)
	return nil
}

// teardownLocked stops loops and resets session state. Listener registrations
// and the user-interaction flag survive. Caller holds s.mu.
func (s *Service) teardownLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.stopLocked()
	s.queue = nil
	s.index = 0
	s.rules = nil
	s.activeSchedule = nil
	s.activePlaylist = nil
	s.shuffleAll = false
	s.initialized = false
}

// Destroy ends the session: the arbiter stops, the sink source is released,
// and all listener registrations are dropped. Safe to call repeatedly or
// before Initialize. Listeners survive a tenant switch but not a Destroy.
func (s *Service) Destroy() {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	tenantID := s.tenantID
	s.teardownLocked()
	s.listeners = make(map[int]Listener)
	s.order = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Str("tenant_id", tenantID).Msg("session destroyed")
	s.publish(events.EventPlayerState, snap)
}

// MarkUserInteracted records a user interaction. If a track is loaded and
// playback was held back waiting for one, it starts now.
func (s *Service) MarkUserInteracted() {
	s.mu.Lock()
	first := !s.userInteracted
	s.userInteracted = true
	if first && s.loaded && !s.playing {
		s.playLocked()
	}
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.notify(listeners, snap)
	s.publish(events.EventPlayerState, snap)
}

// SwitchToShuffle moves playback to the tenant's default shuffle pool.
func (s *Service) SwitchToShuffle() {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	s.activeSchedule = nil
	wasPlaying := s.playing
	s.mu.Unlock()

	s.loadDefaultPool(gen, wasPlaying)
}

// SwitchToPlaylist moves playback to the named playlist. A fetch failure
// leaves the current queue playing and is returned to the caller.
func (s *Service) SwitchToPlaylist(playlistID string) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	s.activeSchedule = nil
	wasPlaying := s.playing
	s.mu.Unlock()

	_, err := s.loadPlaylist(gen, playlistID, wasPlaying)
	return err
}

// RefreshSchedules refetches the tenant's schedule rules and re-arbitrates.
// Rules are otherwise loaded once per session, so edits made after Initialize
// only take effect through this call or a new session.
func (s *Service) RefreshSchedules(ctx context.Context) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil
	}
	tenantID := s.tenantID
	s.mu.Unlock()

	rules, err := s.schedules.ActiveSchedules(ctx, tenantID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()

	s.tick()
	return nil
}

// AddListener registers an observer and sends it the current state
// immediately. The returned function removes the registration; calling it
// more than once is harmless.
func (s *Service) AddListener(fn Listener) func() {
	s.mu.Lock()
	s.listenerID++
	id := s.listenerID
	s.listeners[id] = fn
	s.order = append(s.order, id)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify([]Listener{fn}, snap)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.listeners[id]; !ok {
			return
		}
		delete(s.listeners, id)
		for i, lid := range s.order {
			if lid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// GetState returns the current session snapshot.
func (s *Service) GetState() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// listenersLocked copies the listener set in registration order. Caller holds
// s.mu; the copy is invoked after the lock is released.
func (s *Service) listenersLocked() []Listener {
	out := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.listeners[id])
	}
	return out
}

// notify fans a snapshot out to listeners synchronously. A panicking listener
// is logged and skipped so it cannot take down the session or starve the
// listeners after it.
func (s *Service) notify(listeners []Listener, snap Snapshot) {
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().Interface("panic", r).Msg("state listener panicked")
				}
			}()
			fn(snap)
		}()
	}
}

func (s *Service) publish(eventType events.EventType, snap Snapshot) {
	if s.bus == nil {
		return
	}
	payload := events.Payload{
		"tenant_id":   snap.TenantID,
		"playing":     snap.Playing,
		"volume":      snap.Volume,
		"queue_index": snap.QueueIndex,
		"queue_size":  snap.QueueSize,
		"shuffle_all": snap.ShuffleAll,
	}
	if snap.CurrentTrack != nil {
		payload["track_id"] = snap.CurrentTrack.ID
		payload["track_title"] = snap.CurrentTrack.Title
	}
	if snap.ActivePlaylist != nil {
		payload["playlist_id"] = snap.ActivePlaylist.ID
	}
	if snap.ActiveSchedule != nil {
		payload["schedule_id"] = snap.ActiveSchedule.ID
	}
	s.bus.Publish(eventType, payload)
}
