/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library serves track, playlist, and schedule lookups for the
// playback core, backed by the database with a Redis cache in front.
package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/ambientfm/internal/cache"
	"github.com/friendsincode/ambientfm/internal/models"
)

// ErrPlaylistNotFound indicates the requested playlist does not exist.
var ErrPlaylistNotFound = errors.New("playlist not found")

// Service answers library queries.
type Service struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger zerolog.Logger
}

// New creates a library service. The cache may be nil.
func New(db *gorm.DB, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		cache:  c,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// ShuffleTracks returns the tenant's tracks flagged for shuffle-pool
// inclusion.
func (s *Service) ShuffleTracks(ctx context.Context, tenantID string) ([]models.Track, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetShufflePool(ctx, tenantID); ok {
			return cached, nil
		}
	}

	var tracks []models.Track
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("shuffle = ?", true).
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("query shuffle tracks: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetShufflePool(ctx, tenantID, tracks); err != nil {
			s.logger.Debug().Err(err).Str("tenant", tenantID).Msg("failed to cache shuffle pool")
		}
	}

	return tracks, nil
}

// Playlist returns one playlist record.
func (s *Service) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetPlaylist(ctx, playlistID); ok {
			return cached, nil
		}
	}

	var playlist models.Playlist
	err := s.db.WithContext(ctx).First(&playlist, "id = ?", playlistID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query playlist: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPlaylist(ctx, &playlist); err != nil {
			s.logger.Debug().Err(err).Str("playlist", playlistID).Msg("failed to cache playlist")
		}
	}

	return &playlist, nil
}

// PlaylistTracks returns a playlist's tracks ordered by stored position.
func (s *Service) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetPlaylistTracks(ctx, playlistID); ok {
			return cached, nil
		}
	}

	var tracks []models.Track
	err := s.db.WithContext(ctx).
		Joins("JOIN playlist_tracks ON playlist_tracks.track_id = tracks.id").
		Where("playlist_tracks.playlist_id = ?", playlistID).
		Order("playlist_tracks.position ASC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("query playlist tracks: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPlaylistTracks(ctx, playlistID, tracks); err != nil {
			s.logger.Debug().Err(err).Str("playlist", playlistID).Msg("failed to cache playlist tracks")
		}
	}

	return tracks, nil
}

// ActiveSchedules returns the tenant's schedule rules with the active flag
// set.
func (s *Service) ActiveSchedules(ctx context.Context, tenantID string) ([]models.Schedule, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetScheduleList(ctx, tenantID); ok {
			return cached, nil
		}
	}

	var schedules []models.Schedule
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("query active schedules: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetScheduleList(ctx, tenantID, schedules); err != nil {
			s.logger.Debug().Err(err).Str("tenant", tenantID).Msg("failed to cache schedule list")
		}
	}

	return schedules, nil
}
