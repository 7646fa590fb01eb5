/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"testing"

	"github.com/friendsincode/ambientfm/internal/models"
)

func TestInitializeIdempotent(t *testing.T) {
	h := newHarness(t)
	h.store.pool["tenant-1"] = []models.Track{track("a", "tenant-1")}

	for i := 0; i < 3; i++ {
		if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
			t.Fatalf("Initialize #%d: %v", i+1, err)
		}
	}

	if h.store.poolFetches != 1 {
		t.Fatalf("poolFetches = %d, want 1", h.store.poolFetches)
	}
	if h.store.scheduleFetches != 1 {
		t.Fatalf("scheduleFetches = %d, want 1", h.store.scheduleFetches)
	}
}

func TestInitializeAutoplayGating(t *testing.T) {
	h := newHarness(t)
	h.store.pool["tenant-1"] = []models.Track{track("a", "tenant-1")}

	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	snap := h.svc.GetState()
	if snap.Playing {
		t.Fatal("session must not autoplay before a user interaction")
	}
	if snap.CurrentTrack == nil {
		t.Fatal("a track should be loaded and armed")
	}

	h.svc.MarkUserInteracted()
	if !h.svc.GetState().Playing {
		t.Fatal("armed playback should start on the first interaction")
	}
}

func TestInitializeAutoplaysAfterPriorInteraction(t *testing.T) {
	h := newHarness(t)
	h.store.pool["tenant-1"] = []models.Track{track("a", "tenant-1")}
	h.store.pool["tenant-2"] = []models.Track{track("b", "tenant-2")}

	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	h.svc.Play()

	// The interaction flag survives a tenant switch, so the new session
	// starts playing on its own.
	if err := h.svc.Initialize(context.Background(), "tenant-2"); err != nil {
		t.Fatalf("Initialize tenant-2: %v", err)
	}
	snap := h.svc.GetState()
	if snap.TenantID != "tenant-2" {
		t.Fatalf("tenant = %s, want tenant-2", snap.TenantID)
	}
	if !snap.Playing {
		t.Fatal("switched session should autoplay after a prior interaction")
	}
}

func TestTenantSwitchKeepsListeners(t *testing.T) {
	h := newHarness(t)
	h.store.pool["tenant-1"] = []models.Track{track("a", "tenant-1")}
	h.store.pool["tenant-2"] = []models.Track{track("b", "tenant-2")}

	var seen []string
	h.svc.AddListener(func(snap Snapshot) {
		seen = append(seen, snap.TenantID)
	})

	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := h.svc.Initialize(context.Background(), "tenant-2"); err != nil {
		t.Fatalf("Initialize tenant-2: %v", err)
	}

	if len(seen) == 0 || seen[len(seen)-1] != "tenant-2" {
		t.Fatalf("listener snapshots = %v, want trailing tenant-2", seen)
	}
}

func TestDestroySafe(t *testing.T) {
	h := newHarness(t)

	// Destroy before Initialize and repeated Destroy are both no-ops.
	h.svc.Destroy()

	h.store.pool["tenant-1"] = []models.Track{track("a", "tenant-1")}
	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	h.svc.Play()

	h.svc.Destroy()
	h.svc.Destroy()

	snap := h.svc.GetState()
	if snap.Initialized || snap.Playing || snap.CurrentTrack != nil {
		t.Fatalf("state after Destroy = %+v, want idle", snap)
	}
	if !snap.UserInteracted {
		t.Fatal("interaction flag should survive Destroy")
	}
}

func TestDestroyClearsListeners(t *testing.T) {
	h := newHarness(t)
	h.store.pool["tenant-1"] = []models.Track{track("a", "tenant-1")}
	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	calls := 0
	h.svc.AddListener(func(Snapshot) { calls++ })

	h.svc.Destroy()
	calls = 0

	// A fresh session must not reach observers registered before Destroy.
	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize after Destroy: %v", err)
	}
	h.svc.Play()

	if calls != 0 {
		t.Fatalf("listener ran %d times after Destroy, want 0", calls)
	}
}

func TestListenersOrderAndImmediateSnapshot(t *testing.T) {
	h := newHarness(t)
	h.store.pool["tenant-1"] = []models.Track{track("a", "tenant-1")}
	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	var order []string
	h.svc.AddListener(func(Snapshot) { order = append(order, "first") })
	h.svc.AddListener(func(Snapshot) { order = append(order, "second") })

	// Registration delivers the current state immediately.
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order after registration = %v", order)
	}

	order = order[:0]
	h.svc.Play()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("fan-out order = %v, want [first second]", order)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.store.pool["tenant-1"] = []models.Track{track("a", "tenant-1")}
	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	calls := 0
	unsubscribe := h.svc.AddListener(func(Snapshot) { calls++ })
	baseline := calls

	unsubscribe()
	unsubscribe()

	h.svc.Play()
	if calls != baseline {
		t.Fatalf("calls after unsubscribe = %d, want %d", calls, baseline)
	}
}

func TestListenerPanicIsolation(t *testing.T) {
	h := newHarness(t)
	h.store.pool["tenant-1"] = []models.Track{track("a", "tenant-1")}
	if err := h.svc.Initialize(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	survived := 0
	h.svc.AddListener(func(Snapshot) { panic("listener bug") })
	h.svc.AddListener(func(Snapshot) { survived++ })

	baseline := survived
	h.svc.Play()
	if survived != baseline+1 {
		t.Fatalf("listener after panicking one ran %d times, want %d", survived-baseline, 1)
	}
	if !h.svc.GetState().Playing {
		t.Fatal("a panicking listener must not break the operation")
	}
}

func TestStalePlaylistFetchDiscarded(t *testing.T) {
	h := newHarness(t)
	tenant := "tenant-1"
	h.store.pool[tenant] = []models.Track{track("a", tenant), track("b", tenant)}
	h.store.playlists["pl-1"] = &models.Playlist{ID: "pl-1", Name: "Slow", Type: models.PlaylistOrdered}
	h.store.playlistTracks["pl-1"] = []models.Track{track("p1", tenant)}

	if err := h.svc.Initialize(context.Background(), tenant); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// While the playlist fetch is in flight the user switches back to the
	// shuffle pool. The older fetch must not clobber the newer queue.
	h.store.mu.Lock()
	h.store.onPlaylistFetch = func() {
		h.store.mu.Lock()
		h.store.onPlaylistFetch = nil
		h.store.mu.Unlock()
		h.svc.SwitchToShuffle()
	}
	h.store.mu.Unlock()

	if err := h.svc.SwitchToPlaylist("pl-1"); err != nil {
		t.Fatalf("SwitchToPlaylist: %v", err)
	}

	snap := h.svc.GetState()
	if !snap.ShuffleAll {
		t.Fatal("stale playlist fetch overwrote the newer shuffle queue")
	}
	if snap.ActivePlaylist != nil {
		t.Fatalf("active playlist = %+v, want nil", snap.ActivePlaylist)
	}
}

func TestSwitchToPlaylistKeepsQueueOnFailure(t *testing.T) {
	h := newHarness(t)
	tenant := "tenant-1"
	h.store.pool[tenant] = []models.Track{track("a", tenant), track("b", tenant)}

	if err := h.svc.Initialize(context.Background(), tenant); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	h.svc.Play()
	before := h.svc.GetState()

	if err := h.svc.SwitchToPlaylist("missing"); err == nil {
		t.Fatal("expected error for unknown playlist")
	}

	after := h.svc.GetState()
	if after.QueueSize != before.QueueSize || !after.Playing {
		t.Fatalf("queue after failed switch = %+v, want unchanged", after)
	}
}

func TestOrderedPlaylistKeepsPosition(t *testing.T) {
	h := newHarness(t)
	tenant := "tenant-1"
	h.store.pool[tenant] = []models.Track{track("a", tenant)}
	h.store.playlists["pl-1"] = &models.Playlist{ID: "pl-1", Name: "Set", Type: models.PlaylistOrdered}
	h.store.playlistTracks["pl-1"] = []models.Track{
		track("one", tenant), track("two", tenant), track("three", tenant),
	}

	if err := h.svc.Initialize(context.Background(), tenant); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := h.svc.SwitchToPlaylist("pl-1"); err != nil {
		t.Fatalf("SwitchToPlaylist: %v", err)
	}

	snap := h.svc.GetState()
	want := []string{"one", "two", "three"}
	for i, id := range want {
		if snap.Queue[i].ID != id {
			t.Fatalf("queue[%d] = %s, want %s", i, snap.Queue[i].ID, id)
		}
	}
	if snap.QueueIndex != 0 {
		t.Fatalf("queue index = %d, want 0", snap.QueueIndex)
	}
}
