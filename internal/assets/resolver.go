/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package assets turns a track's storage reference into a fetchable media
// URL.
package assets

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/ambientfm/internal/models"
)

// Resolver resolves playable URLs for tracks.
type Resolver interface {
	PlayableURL(ctx context.Context, track models.Track) (string, error)
}

// FilesystemResolver serves assets from a local media root, optionally behind
// a public base URL.
type FilesystemResolver struct {
	rootDir string
	baseURL string
	logger  zerolog.Logger
}

// NewFilesystemResolver creates a filesystem-backed resolver.
func NewFilesystemResolver(rootDir, baseURL string, logger zerolog.Logger) *FilesystemResolver {
	return &FilesystemResolver{
		rootDir: rootDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "assets").Logger(),
	}
}

// PlayableURL returns a fetchable URL for the track's storage key. With no
// base URL configured the result is a file:// URL into the media root.
func (r *FilesystemResolver) PlayableURL(ctx context.Context, track models.Track) (string, error) {
	if track.StorageKey == "" {
		return "", fmt.Errorf("track %s has no storage key", track.ID)
	}

	if r.baseURL != "" {
		return r.baseURL + "/" + url.PathEscape(track.StorageKey), nil
	}

	return "file://" + path.Join(r.rootDir, track.StorageKey), nil
}
