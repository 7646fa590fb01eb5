/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"math/rand"

	"github.com/friendsincode/ambientfm/internal/events"
	"github.com/friendsincode/ambientfm/internal/models"
	"github.com/friendsincode/ambientfm/internal/telemetry"
)

// shuffleTracks returns a Fisher-Yates permutation of tracks. The input slice
// is not modified.
func shuffleTracks(tracks []models.Track, rng *rand.Rand) []models.Track {
	out := append([]models.Track(nil), tracks...)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// loadDefaultPool fetches the tenant's shuffle pool and installs it as the
// queue. gen is the generation the caller observed when it started the
// switch; a fetch that lost to a newer switch is discarded. On fetch failure
// the existing queue is left untouched so playback continues uninterrupted.
func (s *Service) loadDefaultPool(gen uint64, resume bool) {
	s.mu.Lock()
	tenantID := s.tenantID
	s.mu.Unlock()

	tracks, err := s.tracks.ShuffleTracks(context.Background(), tenantID)
	if err != nil {
		s.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("shuffle pool fetch failed, keeping current queue")
		telemetry.ResolverFailuresTotal.WithLabelValues(tenantID, "pool").Inc()
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		// A newer switch superseded this fetch.
		s.mu.Unlock()
		return
	}
	s.queue = shuffleTracks(tracks, s.rng)
	s.shuffleAll = true
	s.activePlaylist = nil
	s.adoptQueueLocked(resume)
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	telemetry.QueueSize.WithLabelValues(tenantID).Set(float64(len(tracks)))
	s.notify(listeners, snap)
}

// loadPlaylist fetches the named playlist and its tracks and installs them as
// the queue. Ordered playlists keep their position order; shuffle playlists
// get a fresh permutation. On any fetch failure the prior queue survives.
// The returned bool reports whether the queue was installed; a switch that
// bumped the generation past gen while the fetch was in flight discards it.
func (s *Service) loadPlaylist(gen uint64, playlistID string, resume bool) (bool, error) {
	s.mu.Lock()
	tenantID := s.tenantID
	s.mu.Unlock()

	ctx := context.Background()
	playlist, err := s.playlists.Playlist(ctx, playlistID)
	if err != nil {
		s.logger.Error().Err(err).Str("playlist_id", playlistID).Msg("playlist fetch failed, keeping current queue")
		telemetry.ResolverFailuresTotal.WithLabelValues(tenantID, "playlist").Inc()
		return false, err
	}
	tracks, err := s.playlists.PlaylistTracks(ctx, playlistID)
	if err != nil {
		s.logger.Error().Err(err).Str("playlist_id", playlistID).Msg("playlist track fetch failed, keeping current queue")
		telemetry.ResolverFailuresTotal.WithLabelValues(tenantID, "playlist").Inc()
		return false, err
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false, nil
	}
	if playlist.Type == models.PlaylistShuffle {
		tracks = shuffleTracks(tracks, s.rng)
	}
	s.queue = tracks
	s.shuffleAll = false
	s.activePlaylist = &PlaylistInfo{
		ID:          playlist.ID,
		Name:        playlist.Name,
		Description: playlist.Description,
	}
	s.adoptQueueLocked(resume)
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	telemetry.QueueSize.WithLabelValues(tenantID).Set(float64(len(tracks)))
	s.notify(listeners, snap)
	return true, nil
}

// adoptQueueLocked points playback at the head of a freshly installed queue.
// If a track was loaded before the switch, the new head is loaded and, when
// resume is set, playback continues without user involvement. Caller holds
// s.mu and must have already replaced s.queue.
func (s *Service) adoptQueueLocked(resume bool) {
	s.index = 0
	if len(s.queue) == 0 {
		s.stopLocked()
		return
	}
	if !s.loaded {
		// Nothing was playing yet, leave transport idle until Play.
		return
	}
	s.loadTrackLocked(0)
	if resume {
		s.playLocked()
	}
}

// applySchedule transitions playback onto the rule's playlist. The rule is
// recorded as active only after its playlist resolves, so a failed fetch is
// retried on the next arbitration pass.
func (s *Service) applySchedule(rule *models.Schedule) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	wasPlaying := s.playing
	s.mu.Unlock()

	installed, err := s.loadPlaylist(gen, rule.PlaylistID, wasPlaying)
	if err != nil || !installed {
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		// A manual switch landed after the queue was installed; it wins.
		s.mu.Unlock()
		return
	}
	ruleCopy := *rule
	s.activeSchedule = &ruleCopy
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.notify(listeners, snap)
	s.publish(events.EventScheduleActivated, snap)
}

// releaseSchedule returns playback to the default shuffle pool after the
// active rule's window closes.
func (s *Service) releaseSchedule() {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.activeSchedule = nil
	wasPlaying := s.playing
	s.mu.Unlock()

	s.loadDefaultPool(gen, wasPlaying)

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(events.EventScheduleReleased, snap)
}
