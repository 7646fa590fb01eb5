/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"time"

	"github.com/friendsincode/ambientfm/internal/models"
)

// PlaylistInfo identifies the active playlist. Nil on a snapshot means the
// default shuffle-all pool is playing.
type PlaylistInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ScheduleInfo identifies the schedule rule that forced the active playlist.
type ScheduleInfo struct {
	ID         string `json:"id"`
	PlaylistID string `json:"playlist_id"`
	Priority   int    `json:"priority"`
}

// Snapshot is an immutable view of the playback session handed to observers.
type Snapshot struct {
	TenantID       string        `json:"tenant_id"`
	Initialized    bool          `json:"initialized"`
	UserInteracted bool          `json:"user_interacted"`

	CurrentTrack *models.Track  `json:"current_track,omitempty"`
	Queue        []models.Track `json:"queue"`
	QueueIndex   int            `json:"queue_index"`
	QueueSize    int            `json:"queue_size"`

	Playing  bool          `json:"playing"`
	Volume   float64       `json:"volume"`
	Position time.Duration `json:"position"`
	Duration time.Duration `json:"duration"`

	ShuffleAll     bool          `json:"shuffle_all"`
	ActivePlaylist *PlaylistInfo `json:"active_playlist,omitempty"`
	ActiveSchedule *ScheduleInfo `json:"active_schedule,omitempty"`
}

// Listener observes session state. Listeners are invoked synchronously, in
// registration order, with a fresh snapshot after every state-affecting
// operation.
type Listener func(Snapshot)

// snapshotLocked builds an observer snapshot. Caller holds s.mu.
func (s *Service) snapshotLocked() Snapshot {
	snap := Snapshot{
		TenantID:       s.tenantID,
		Initialized:    s.initialized,
		UserInteracted: s.userInteracted,
		QueueIndex:     s.index,
		QueueSize:      len(s.queue),
		Playing:        s.playing,
		Volume:         s.volume,
		ShuffleAll:     s.shuffleAll,
	}

	if s.current != nil {
		track := *s.current
		snap.CurrentTrack = &track
	}
	if len(s.queue) > 0 {
		snap.Queue = append([]models.Track(nil), s.queue...)
	}
	if s.activePlaylist != nil {
		info := *s.activePlaylist
		snap.ActivePlaylist = &info
	}
	if s.activeSchedule != nil {
		snap.ActiveSchedule = &ScheduleInfo{
			ID:         s.activeSchedule.ID,
			PlaylistID: s.activeSchedule.PlaylistID,
			Priority:   s.activeSchedule.Priority,
		}
	}
	if s.loaded {
		snap.Position = s.sink.Position()
		snap.Duration = s.sink.Duration()
	}

	return snap
}
