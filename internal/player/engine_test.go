/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/friendsincode/ambientfm/internal/models"
)

func initTenant(t *testing.T, h *harness, tracks ...models.Track) {
	t.Helper()
	h.store.pool["tenant-1"] = tracks
	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func TestPlayPauseToggle(t *testing.T) {
	h := newHarness(t)
	initTenant(t, h, track("a", "tenant-1"), track("b", "tenant-1"))

	if h.svc.GetState().Playing {
		t.Fatal("must not play before a user interaction")
	}

	h.svc.Play()
	if !h.svc.GetState().Playing {
		t.Fatal("Play should start playback")
	}

	h.svc.Pause()
	if h.svc.GetState().Playing {
		t.Fatal("Pause should stop playback")
	}

	h.svc.Toggle()
	if !h.svc.GetState().Playing {
		t.Fatal("Toggle from paused should play")
	}
	h.svc.Toggle()
	if h.svc.GetState().Playing {
		t.Fatal("Toggle from playing should pause")
	}
}

func TestNextPreviousWraparound(t *testing.T) {
	h := newHarness(t)
	initTenant(t, h, track("a", "tenant-1"), track("b", "tenant-1"), track("c", "tenant-1"))
	h.svc.Play()

	start := h.svc.GetState().QueueIndex
	n := 3

	h.svc.Next()
	if got := h.svc.GetState().QueueIndex; got != (start+1)%n {
		t.Fatalf("index after Next = %d, want %d", got, (start+1)%n)
	}

	// Walk off the end and wrap back to the head.
	h.svc.Next()
	h.svc.Next()
	if got := h.svc.GetState().QueueIndex; got != start {
		t.Fatalf("index after full loop = %d, want %d", got, start)
	}

	h.svc.Previous()
	if got := h.svc.GetState().QueueIndex; got != (start+n-1)%n {
		t.Fatalf("index after Previous wrap = %d, want %d", got, (start+n-1)%n)
	}
}

func TestEmptyQueueNoOps(t *testing.T) {
	h := newHarness(t)
	initTenant(t, h)

	h.svc.Play()
	h.svc.Toggle()
	h.svc.Next()
	h.svc.Previous()
	h.svc.Pause()

	snap := h.svc.GetState()
	if snap.Playing {
		t.Fatal("empty queue must never report playing")
	}
	if snap.CurrentTrack != nil {
		t.Fatalf("current track = %+v, want nil", snap.CurrentTrack)
	}
}

func TestSkipWhilePausedStaysPaused(t *testing.T) {
	h := newHarness(t)
	initTenant(t, h, track("a", "tenant-1"), track("b", "tenant-1"))
	h.svc.Play()
	h.svc.Pause()

	before := h.svc.GetState().QueueIndex
	h.svc.Next()
	snap := h.svc.GetState()
	if snap.Playing {
		t.Fatal("skipping while paused must stay paused")
	}
	if snap.QueueIndex == before {
		t.Fatal("skip while paused should still advance the queue")
	}
}

func TestAutoAdvanceOnEnded(t *testing.T) {
	h := newHarness(t)
	initTenant(t, h, track("a", "tenant-1"), track("b", "tenant-1"))
	h.svc.Play()

	before := h.svc.GetState().QueueIndex
	h.sink.events <- SinkEvent{Type: SinkEnded}

	waitFor(t, func() bool {
		return h.svc.GetState().QueueIndex != before
	}, "queue index to advance after track ended")

	if !h.svc.GetState().Playing {
		t.Fatal("playback should continue on the next track")
	}
}

func TestAutoAdvanceOnError(t *testing.T) {
	h := newHarness(t)
	initTenant(t, h, track("a", "tenant-1"), track("b", "tenant-1"))
	h.svc.Play()

	before := h.svc.GetState().QueueIndex
	h.sink.events <- SinkEvent{Type: SinkError, Err: errors.New("decode failed")}

	waitFor(t, func() bool {
		return h.svc.GetState().QueueIndex != before
	}, "queue index to advance after playback error")

	if !h.svc.GetState().Playing {
		t.Fatal("an unplayable track should be skipped, not stall playback")
	}
}

func TestAutoplayRefusalSwallowed(t *testing.T) {
	h := newHarness(t)
	h.sink.playErr = errors.New("device unavailable")
	initTenant(t, h, track("a", "tenant-1"))

	h.svc.Play()
	if h.svc.GetState().Playing {
		t.Fatal("refused sink start must leave the session paused")
	}

	h.sink.mu.Lock()
	h.sink.playErr = nil
	h.sink.mu.Unlock()

	h.svc.Play()
	if !h.svc.GetState().Playing {
		t.Fatal("a later Play should succeed once the sink recovers")
	}
}

func TestSetVolumeClamp(t *testing.T) {
	h := newHarness(t)
	initTenant(t, h, track("a", "tenant-1"))

	h.svc.SetVolume(1.7)
	if got := h.svc.GetState().Volume; got != 1.0 {
		t.Fatalf("volume after 1.7 = %v, want 1.0", got)
	}
	h.svc.SetVolume(-0.2)
	if got := h.svc.GetState().Volume; got != 0.0 {
		t.Fatalf("volume after -0.2 = %v, want 0.0", got)
	}
	h.svc.SetVolume(0.4)
	if got := h.svc.GetState().Volume; got != 0.4 {
		t.Fatalf("volume = %v, want 0.4", got)
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	h := newHarness(t)
	tracks := []models.Track{
		track("a", "tenant-1"), track("b", "tenant-1"), track("c", "tenant-1"),
		track("d", "tenant-1"), track("e", "tenant-1"),
	}
	initTenant(t, h, tracks...)

	snap := h.svc.GetState()
	if len(snap.Queue) != len(tracks) {
		t.Fatalf("queue size = %d, want %d", len(snap.Queue), len(tracks))
	}

	got := make([]string, len(snap.Queue))
	for i, tr := range snap.Queue {
		got[i] = tr.ID
	}
	sort.Strings(got)
	want := []string{"a", "b", "c", "d", "e"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queue ids = %v, want permutation of %v", got, want)
		}
	}
}
