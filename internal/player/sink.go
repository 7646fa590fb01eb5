/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import "time"

// SinkEventType enumerates media sink events.
type SinkEventType string

const (
	SinkPlay  SinkEventType = "play"
	SinkPause SinkEventType = "pause"
	SinkEnded SinkEventType = "ended"
	SinkError SinkEventType = "error"
)

// SinkEvent is emitted by a media sink when playback state changes outside
// the service's own control calls.
type SinkEvent struct {
	Type SinkEventType
	Err  error
}

// Sink is the platform media playback primitive. Implementations own the
// actual audio output; the service owns everything above it.
type Sink interface {
	// Load assigns a new source URL without starting playback.
	Load(url string) error
	// Play requests playback start. Implementations may refuse (platform
	// policy, no source); the caller treats a refusal as non-fatal.
	Play() error
	// Pause requests playback stop. Idempotent.
	Pause()
	// Stop pauses and releases the current source.
	Stop()
	// SetVolume applies a volume in [0,1].
	SetVolume(v float64)
	Position() time.Duration
	Duration() time.Duration
	// Events delivers play/pause/ended/error notifications. The channel is
	// buffered; events are dropped rather than blocking the sink.
	Events() <-chan SinkEvent
	Close() error
}
