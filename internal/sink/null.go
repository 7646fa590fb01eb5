/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sink provides audio sink implementations that need no hardware.
package sink

import (
	"sync"
	"time"

	"github.com/friendsincode/ambientfm/internal/player"
)

// Null is a sink without an output device. It accepts every transport
// command and tracks a wall-clock playhead, so headless deployments can run
// the full session logic while the actual audio is rendered elsewhere.
type Null struct {
	mu       sync.Mutex
	loaded   bool
	playing  bool
	position time.Duration
	started  time.Time

	events chan player.SinkEvent
}

// NewNull creates a silent sink.
func NewNull() *Null {
	return &Null{events: make(chan player.SinkEvent, 16)}
}

func (n *Null) Load(string) error {
	n.mu.Lock()
	n.loaded = true
	n.playing = false
	n.position = 0
	n.mu.Unlock()
	return nil
}

func (n *Null) Play() error {
	n.mu.Lock()
	if n.loaded && !n.playing {
		n.playing = true
		n.started = time.Now()
	}
	n.mu.Unlock()
	return nil
}

func (n *Null) Pause() {
	n.mu.Lock()
	if n.playing {
		n.position += time.Since(n.started)
		n.playing = false
	}
	n.mu.Unlock()
}

func (n *Null) Stop() {
	n.mu.Lock()
	n.loaded = false
	n.playing = false
	n.position = 0
	n.mu.Unlock()
}

func (n *Null) SetVolume(float64) {}

func (n *Null) Position() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.playing {
		return n.position + time.Since(n.started)
	}
	return n.position
}

func (n *Null) Duration() time.Duration { return 0 }

func (n *Null) Events() <-chan player.SinkEvent { return n.events }

func (n *Null) Close() error { return nil }
