/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for library lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/ambientfm/internal/models"
)

// Default TTL values for different cache types
const (
	DefaultShufflePoolTTL    = 10 * time.Minute
	DefaultPlaylistTTL       = 30 * time.Minute
	DefaultPlaylistTracksTTL = 10 * time.Minute
	DefaultScheduleListTTL   = 5 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeyShufflePool    = "ambientfm:cache:shuffle_pool:"    // + tenant_id
	KeyPlaylist       = "ambientfm:cache:playlist:"        // + playlist_id
	KeyPlaylistTracks = "ambientfm:cache:playlist_tracks:" // + playlist_id
	KeyScheduleList   = "ambientfm:cache:schedules:"       // + tenant_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	ShufflePoolTTL    time.Duration
	PlaylistTTL       time.Duration
	PlaylistTracksTTL time.Duration
	ScheduleListTTL   time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:         "localhost:6379",
		ShufflePoolTTL:    DefaultShufflePoolTTL,
		PlaylistTTL:       DefaultPlaylistTTL,
		PlaylistTracksTTL: DefaultPlaylistTracksTTL,
		ScheduleListTTL:   DefaultScheduleListTTL,
		DisableOnError:    true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// Shuffle pool caching

// GetShufflePool retrieves the cached shuffle pool for a tenant.
func (c *Cache) GetShufflePool(ctx context.Context, tenantID string) ([]models.Track, bool) {
	var tracks []models.Track
	found, err := c.get(ctx, KeyShufflePool+tenantID, &tracks)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("tenant", tenantID).Int("count", len(tracks)).Msg("shuffle pool cache hit")
	return tracks, true
}

// SetShufflePool stores the shuffle pool for a tenant.
func (c *Cache) SetShufflePool(ctx context.Context, tenantID string, tracks []models.Track) error {
	return c.set(ctx, KeyShufflePool+tenantID, tracks, c.config.ShufflePoolTTL)
}

// InvalidateShufflePool removes a tenant's cached shuffle pool.
func (c *Cache) InvalidateShufflePool(ctx context.Context, tenantID string) error {
	return c.delete(ctx, KeyShufflePool+tenantID)
}

// Playlist caching

// GetPlaylist retrieves a cached playlist record.
func (c *Cache) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, bool) {
	var playlist models.Playlist
	found, err := c.get(ctx, KeyPlaylist+playlistID, &playlist)
	if err != nil || !found {
		return nil, false
	}
	return &playlist, true
}

// SetPlaylist stores a playlist record.
func (c *Cache) SetPlaylist(ctx context.Context, playlist *models.Playlist) error {
	return c.set(ctx, KeyPlaylist+playlist.ID, playlist, c.config.PlaylistTTL)
}

// GetPlaylistTracks retrieves the cached resolved track list of a playlist.
func (c *Cache) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, bool) {
	var tracks []models.Track
	found, err := c.get(ctx, KeyPlaylistTracks+playlistID, &tracks)
	if err != nil || !found {
		return nil, false
	}
	return tracks, true
}

// SetPlaylistTracks stores the resolved track list of a playlist.
func (c *Cache) SetPlaylistTracks(ctx context.Context, playlistID string, tracks []models.Track) error {
	return c.set(ctx, KeyPlaylistTracks+playlistID, tracks, c.config.PlaylistTracksTTL)
}

// InvalidatePlaylist removes a playlist and its track list from cache.
func (c *Cache) InvalidatePlaylist(ctx context.Context, playlistID string) error {
	if err := c.delete(ctx, KeyPlaylist+playlistID); err != nil {
		return err
	}
	return c.delete(ctx, KeyPlaylistTracks+playlistID)
}

// Schedule caching

// GetScheduleList retrieves the cached active schedule rules for a tenant.
func (c *Cache) GetScheduleList(ctx context.Context, tenantID string) ([]models.Schedule, bool) {
	var schedules []models.Schedule
	found, err := c.get(ctx, KeyScheduleList+tenantID, &schedules)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("tenant", tenantID).Int("count", len(schedules)).Msg("schedule list cache hit")
	return schedules, true
}

// SetScheduleList stores the active schedule rules for a tenant.
func (c *Cache) SetScheduleList(ctx context.Context, tenantID string, schedules []models.Schedule) error {
	return c.set(ctx, KeyScheduleList+tenantID, schedules, c.config.ScheduleListTTL)
}

// InvalidateScheduleList removes a tenant's cached schedule rules.
func (c *Cache) InvalidateScheduleList(ctx context.Context, tenantID string) error {
	return c.delete(ctx, KeyScheduleList+tenantID)
}
