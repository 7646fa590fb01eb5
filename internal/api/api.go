/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP control plane: playback transport, playlist
// and schedule browsing, and the websocket event feed.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/ambientfm/internal/auth"
	"github.com/friendsincode/ambientfm/internal/events"
	"github.com/friendsincode/ambientfm/internal/library"
	"github.com/friendsincode/ambientfm/internal/models"
	"github.com/friendsincode/ambientfm/internal/player"
)

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	jwtSecret []byte
	player    *player.Service
	library   *library.Service
	bus       *events.Bus
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, playerSvc *player.Service, librarySvc *library.Service, bus *events.Bus, logger zerolog.Logger) *API {
	return &API{
		db:        db,
		jwtSecret: jwtSecret,
		player:    playerSvc,
		library:   librarySvc,
		bus:       bus,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all endpoints on r.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.db, a.jwtSecret))

			pr.Route("/player", func(r chi.Router) {
				r.Get("/state", a.handlePlayerState)
				r.Post("/initialize", a.handleInitialize)
				r.Post("/destroy", a.handleDestroy)
				r.Post("/play", a.handlePlay)
				r.Post("/pause", a.handlePause)
				r.Post("/toggle", a.handleToggle)
				r.Post("/next", a.handleNext)
				r.Post("/previous", a.handlePrevious)
				r.Post("/volume", a.handleVolume)
				r.Post("/interact", a.handleInteract)
				r.Post("/shuffle", a.handleShuffle)
				r.Post("/playlists/{playlistID}/activate", a.handleActivatePlaylist)
				r.Post("/schedules/refresh", a.handleScheduleRefresh)
			})

			pr.Route("/tenants/{tenantID}", func(r chi.Router) {
				r.Get("/tracks", a.handleTracksList)
				r.Get("/playlists", a.handlePlaylistsList)
				r.Get("/schedules", a.handleSchedulesList)
			})
			pr.Get("/playlists/{playlistID}", a.handlePlaylistGet)

			pr.Get("/events", a.handleEvents)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID string `json:"tenant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.TenantID == "" {
		// Fall back to the caller's own tenant.
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok || claims.TenantID == "" {
			writeError(w, http.StatusBadRequest, "tenant_required")
			return
		}
		req.TenantID = claims.TenantID
	}

	var tenant models.Tenant
	if err := a.db.WithContext(r.Context()).First(&tenant, "id = ?", req.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "tenant_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if err := a.player.Initialize(r.Context(), tenant.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "initialize_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleDestroy(w http.ResponseWriter, r *http.Request) {
	a.player.Destroy()
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handlePlay(w http.ResponseWriter, r *http.Request) {
	a.player.Play()
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	a.player.Pause()
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleToggle(w http.ResponseWriter, r *http.Request) {
	a.player.Toggle()
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleNext(w http.ResponseWriter, r *http.Request) {
	a.player.Next()
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handlePrevious(w http.ResponseWriter, r *http.Request) {
	a.player.Previous()
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume *float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		writeError(w, http.StatusBadRequest, "volume_required")
		return
	}
	a.player.SetVolume(*req.Volume)
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleInteract(w http.ResponseWriter, r *http.Request) {
	a.player.MarkUserInteracted()
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleShuffle(w http.ResponseWriter, r *http.Request) {
	a.player.SwitchToShuffle()
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleActivatePlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")
	if err := a.player.SwitchToPlaylist(playlistID); err != nil {
		if errors.Is(err, library.ErrPlaylistNotFound) {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		writeError(w, http.StatusBadGateway, "playlist_load_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleScheduleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := a.player.RefreshSchedules(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "schedule_refresh_failed")
		return
	}
	writeJSON(w, http.StatusOK, a.player.GetState())
}

func (a *API) handleTracksList(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	var tracks []models.Track
	if err := a.db.WithContext(r.Context()).
		Where("tenant_id = ?", tenantID).
		Order("title ASC").
		Find(&tracks).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (a *API) handlePlaylistsList(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	var playlists []models.Playlist
	if err := a.db.WithContext(r.Context()).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&playlists).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (a *API) handlePlaylistGet(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")

	playlist, err := a.library.Playlist(r.Context(), playlistID)
	if err != nil {
		if errors.Is(err, library.ErrPlaylistNotFound) {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	tracks, err := a.library.PlaylistTracks(r.Context(), playlistID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"playlist": playlist,
		"tracks":   tracks,
	})
}

func (a *API) handleSchedulesList(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	schedules, err := a.library.ActiveSchedules(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
