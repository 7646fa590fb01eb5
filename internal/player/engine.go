/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"

	"github.com/friendsincode/ambientfm/internal/events"
	"github.com/friendsincode/ambientfm/internal/telemetry"
)

// loadTrackLocked resolves the track at idx to a playable URL and hands it to
// the sink. Playback does not start. Caller holds s.mu and idx must be in
// range.
func (s *Service) loadTrackLocked(idx int) {
	track := s.queue[idx]
	s.index = idx
	s.current = &track
	s.playing = false
	s.loaded = false

	url, err := s.resolver.PlayableURL(context.Background(), track)
	if err != nil {
		s.logger.Error().Err(err).Str("track_id", track.ID).Msg("asset resolve failed")
		telemetry.ResolverFailuresTotal.WithLabelValues(s.tenantID, "asset").Inc()
		return
	}
	if err := s.sink.Load(url); err != nil {
		s.logger.Error().Err(err).Str("track_id", track.ID).Msg("sink load failed")
		return
	}
	s.loaded = true
}

// playLocked starts the sink. A refused start (the sink cannot begin playback
// without an interaction, or the device is unavailable) is swallowed: the
// session stays paused and a later Play retries. Caller holds s.mu.
func (s *Service) playLocked() {
	if !s.loaded {
		return
	}
	if err := s.sink.Play(); err != nil {
		s.logger.Debug().Err(err).Msg("sink refused playback, staying paused")
		s.playing = false
		return
	}
	s.playing = true
}

// stopLocked halts the sink and clears the loaded track. Caller holds s.mu.
func (s *Service) stopLocked() {
	if s.loaded {
		s.sink.Stop()
	}
	s.current = nil
	s.loaded = false
	s.playing = false
}

// advanceLocked moves playback by delta positions, wrapping around both ends
// of the queue. An empty queue is a no-op. Caller holds s.mu.
func (s *Service) advanceLocked(delta int, resume bool) {
	n := len(s.queue)
	if n == 0 {
		return
	}
	next := ((s.index+delta)%n + n) % n
	s.loadTrackLocked(next)
	if resume {
		s.playLocked()
	}
}

// Play starts or resumes playback and records the user interaction that
// permits autoplay from now on. No-op when the queue is empty.
func (s *Service) Play() {
	s.mu.Lock()
	s.userInteracted = true
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	if !s.loaded {
		s.loadTrackLocked(s.index)
	}
	s.playLocked()
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.notify(listeners, snap)
	s.publish(events.EventPlayerState, snap)
}

// Pause suspends playback, keeping the current position.
func (s *Service) Pause() {
	s.mu.Lock()
	if s.loaded && s.playing {
		s.sink.Pause()
		s.playing = false
	}
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.notify(listeners, snap)
	s.publish(events.EventPlayerState, snap)
}

// Toggle flips between playing and paused. Starting playback through Toggle
// counts as a user interaction.
func (s *Service) Toggle() {
	s.mu.Lock()
	playing := s.playing
	s.mu.Unlock()
	if playing {
		s.Pause()
	} else {
		s.Play()
	}
}

// Next skips forward one track, wrapping to the head past the end. Playback
// state is preserved: skipping while paused loads the next track paused.
func (s *Service) Next() {
	s.skip(1)
}

// Previous skips back one track, wrapping to the tail before the head.
func (s *Service) Previous() {
	s.skip(-1)
}

func (s *Service) skip(delta int) {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	wasPlaying := s.playing
	s.advanceLocked(delta, wasPlaying)
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.notify(listeners, snap)
	s.publish(events.EventTrackChanged, snap)
}

// SetVolume adjusts playback gain. Values are clamped to [0, 1].
func (s *Service) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	s.mu.Lock()
	s.volume = volume
	s.sink.SetVolume(volume)
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.notify(listeners, snap)
	s.publish(events.EventPlayerState, snap)
}

// sinkEventLoop consumes transport events from the sink. Both a finished
// track and a failed one advance to the next queue entry so one bad asset
// cannot stall the session.
func (s *Service) sinkEventLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.sink.Events():
			if !ok {
				return
			}
			switch ev.Type {
			case SinkEnded:
				s.autoAdvance(false, ev)
			case SinkError:
				s.autoAdvance(true, ev)
			}
		}
	}
}

func (s *Service) autoAdvance(failed bool, ev SinkEvent) {
	s.mu.Lock()
	if failed {
		trackID := ""
		if s.current != nil {
			trackID = s.current.ID
		}
		s.logger.Warn().Err(ev.Err).Str("track_id", trackID).Msg("playback failed, skipping")
		telemetry.PlaybackSkipsTotal.WithLabelValues(s.tenantID).Inc()
	}
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	// The sink has already stopped, so resume follows the session intent
	// rather than the sink's momentary state.
	s.advanceLocked(1, s.playing)
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.notify(listeners, snap)
	s.publish(events.EventTrackChanged, snap)
}
