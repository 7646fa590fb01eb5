/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package beepsink plays tracks on the local audio device. It decodes MP3
// streams fetched over HTTP or read from disk and drives the speaker through
// the beep library.
package beepsink

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog"

	"github.com/friendsincode/ambientfm/internal/player"
)

// bufferLen is the speaker buffer. Short enough that pause feels immediate,
// long enough to ride out scheduler hiccups.
const bufferLen = time.Second / 5

// Sink renders audio through the machine's default output device.
type Sink struct {
	logger zerolog.Logger
	client *http.Client

	mu          sync.Mutex
	initialized bool
	sampleRate  beep.SampleRate
	streamer    beep.StreamSeekCloser
	body        io.Closer
	ctrl        *beep.Ctrl
	gain        *effects.Volume
	format      beep.Format
	volume      float64
	generation  uint64

	events chan player.SinkEvent
}

// New creates a speaker sink. The audio device is opened lazily on the first
// Load.
func New(logger zerolog.Logger) *Sink {
	return &Sink{
		logger: logger.With().Str("component", "beepsink").Logger(),
		client: &http.Client{Timeout: 30 * time.Second},
		volume: 1.0,
		events: make(chan player.SinkEvent, 16),
	}
}

func (s *Sink) open(rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing track url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		resp, err := s.client.Get(rawURL)
		if err != nil {
			return nil, fmt.Errorf("fetching track: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching track: unexpected status %d", resp.StatusCode)
		}
		return resp.Body, nil
	case "file":
		return os.Open(u.Path)
	default:
		return os.Open(rawURL)
	}
}

// Load replaces the current stream with the track at url. Playback starts
// paused; call Play to begin.
func (s *Sink) Load(url string) error {
	body, err := s.open(url)
	if err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(body)
	if err != nil {
		body.Close()
		return fmt.Errorf("decoding mp3: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()

	if !s.initialized {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(bufferLen)); err != nil {
			streamer.Close()
			body.Close()
			return fmt.Errorf("opening audio device: %w", err)
		}
		s.initialized = true
		s.sampleRate = format.SampleRate
	}

	s.streamer = streamer
	s.body = body
	s.format = format
	s.generation++
	gen := s.generation

	s.ctrl = &beep.Ctrl{Streamer: s.resampled(streamer), Paused: true}
	s.gain = &effects.Volume{Streamer: s.ctrl, Base: 2, Volume: gainFor(s.volume), Silent: s.volume == 0}

	// The callback runs on the mixer goroutine, which holds the speaker
	// lock; taking s.mu there can deadlock against Load and Stop.
	speaker.Play(beep.Seq(s.gain, beep.Callback(func() {
		go s.finished(gen)
	})))

	return nil
}

// resampled adapts a stream whose sample rate differs from the device's.
// speaker.Init fixes the device rate on first use.
func (s *Sink) resampled(streamer beep.StreamSeekCloser) beep.Streamer {
	if s.format.SampleRate == s.sampleRate {
		return streamer
	}
	return beep.Resample(4, s.format.SampleRate, s.sampleRate, streamer)
}

// finished reports end-of-stream for the given load generation. Stale
// callbacks from a replaced stream are dropped.
func (s *Sink) finished(gen uint64) {
	s.mu.Lock()
	current := s.generation == gen
	s.mu.Unlock()
	if !current {
		return
	}
	select {
	case s.events <- player.SinkEvent{Type: player.SinkEnded}:
	default:
		s.logger.Warn().Msg("event channel full, dropping ended event")
	}
}

// Play resumes the loaded stream.
func (s *Sink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return fmt.Errorf("no track loaded")
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause suspends the loaded stream, keeping its position.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

// Stop discards the loaded stream.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Sink) clearLocked() {
	if s.ctrl != nil {
		speaker.Clear()
		s.ctrl = nil
		s.gain = nil
	}
	if s.streamer != nil {
		s.streamer.Close()
		s.streamer = nil
	}
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
}

// gainFor maps a linear [0,1] volume to the exponential gain beep expects.
func gainFor(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log2(v) * 2
}

// SetVolume adjusts output gain. 0 is silent, 1 is unity.
func (s *Sink) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	if s.gain == nil {
		return
	}
	speaker.Lock()
	s.gain.Volume = gainFor(v)
	s.gain.Silent = v == 0
	speaker.Unlock()
}

// Position reports the playhead within the loaded stream.
func (s *Sink) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := s.format.SampleRate.D(s.streamer.Position())
	speaker.Unlock()
	return pos
}

// Duration reports the total length of the loaded stream.
func (s *Sink) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0
	}
	speaker.Lock()
	total := s.format.SampleRate.D(s.streamer.Len())
	speaker.Unlock()
	return total
}

// Events exposes end-of-stream notifications.
func (s *Sink) Events() <-chan player.SinkEvent {
	return s.events
}

// Close releases the stream and the device.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	return nil
}
