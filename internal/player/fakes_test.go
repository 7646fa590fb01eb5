/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/ambientfm/internal/models"
)

type fakeStore struct {
	mu sync.Mutex

	pool    map[string][]models.Track
	poolErr error

	playlists      map[string]*models.Playlist
	playlistTracks map[string][]models.Track
	playlistErr    error

	schedules   map[string][]models.Schedule
	scheduleErr error

	poolFetches     int
	playlistFetches int
	scheduleFetches int

	onPlaylistFetch func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pool:           make(map[string][]models.Track),
		playlists:      make(map[string]*models.Playlist),
		playlistTracks: make(map[string][]models.Track),
		schedules:      make(map[string][]models.Schedule),
	}
}

func (f *fakeStore) ShuffleTracks(_ context.Context, tenantID string) ([]models.Track, error) {
	f.mu.Lock()
	f.poolFetches++
	err := f.poolErr
	tracks := append([]models.Track(nil), f.pool[tenantID]...)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func (f *fakeStore) Playlist(_ context.Context, id string) (*models.Playlist, error) {
	f.mu.Lock()
	err := f.playlistErr
	playlist := f.playlists[id]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if playlist == nil {
		return nil, fmt.Errorf("playlist %s not found", id)
	}
	out := *playlist
	return &out, nil
}

func (f *fakeStore) PlaylistTracks(_ context.Context, id string) ([]models.Track, error) {
	f.mu.Lock()
	f.playlistFetches++
	err := f.playlistErr
	tracks := append([]models.Track(nil), f.playlistTracks[id]...)
	hook := f.onPlaylistFetch
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func (f *fakeStore) ActiveSchedules(_ context.Context, tenantID string) ([]models.Schedule, error) {
	f.mu.Lock()
	f.scheduleFetches++
	err := f.scheduleErr
	rules := append([]models.Schedule(nil), f.schedules[tenantID]...)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return rules, nil
}

type fakeResolver struct {
	err error
}

func (r *fakeResolver) PlayableURL(_ context.Context, track models.Track) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "test://" + track.StorageKey, nil
}

type fakeSink struct {
	mu      sync.Mutex
	loaded  string
	loads   []string
	playing bool
	volume  float64
	loadErr error
	playErr error
	events  chan SinkEvent
}

func newFakeSink() *fakeSink {
	return &fakeSink{events: make(chan SinkEvent, 16)}
}

func (s *fakeSink) Load(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	s.loaded = url
	s.loads = append(s.loads, url)
	s.playing = false
	return nil
}

func (s *fakeSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.playing = true
	return nil
}

func (s *fakeSink) Pause() {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
}

func (s *fakeSink) Stop() {
	s.mu.Lock()
	s.playing = false
	s.loaded = ""
	s.mu.Unlock()
}

func (s *fakeSink) SetVolume(v float64) {
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

func (s *fakeSink) Position() time.Duration { return 0 }
func (s *fakeSink) Duration() time.Duration { return 0 }

func (s *fakeSink) Events() <-chan SinkEvent { return s.events }

func (s *fakeSink) Close() error { return nil }

func track(id, tenantID string) models.Track {
	return models.Track{
		ID:         id,
		TenantID:   tenantID,
		Title:      "Track " + id,
		StorageKey: id + ".mp3",
		Shuffle:    true,
	}
}

type harness struct {
	store *fakeStore
	sink  *fakeSink
	svc   *Service
	clock time.Time
	mu    sync.Mutex
}

func (h *harness) setClock(t time.Time) {
	h.mu.Lock()
	h.clock = t
	h.mu.Unlock()
}

func (h *harness) nowFn() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		store: newFakeStore(),
		sink:  newFakeSink(),
		clock: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	base := []Option{
		WithClock(h.nowFn),
		WithPollInterval(time.Hour),
		WithRandSource(newSeq()),
	}
	h.svc = New(h.store, h.store, h.store, &fakeResolver{}, h.sink, nil,
		zerolog.Nop(), append(base, opts...)...)

	t.Cleanup(h.svc.Destroy)
	return h
}

// seqSource is a deterministic rand.Source so shuffle results are stable
// across runs.
type seqSource struct{ state int64 }

func newSeq() *seqSource { return &seqSource{state: 42} }

func (s *seqSource) Int63() int64 {
	s.state = s.state*6364136223846793005 + 1442695040888963407
	v := s.state
	if v < 0 {
		v = -v
	}
	return v
}

func (s *seqSource) Seed(seed int64) { s.state = seed }

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}
