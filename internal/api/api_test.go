/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/ambientfm/internal/assets"
	"github.com/friendsincode/ambientfm/internal/auth"
	"github.com/friendsincode/ambientfm/internal/db"
	"github.com/friendsincode/ambientfm/internal/events"
	"github.com/friendsincode/ambientfm/internal/library"
	"github.com/friendsincode/ambientfm/internal/models"
	"github.com/friendsincode/ambientfm/internal/player"
	"github.com/friendsincode/ambientfm/internal/sink"
)

var testSecret = []byte("test-secret")

func setupAPI(t *testing.T) (*API, *gorm.DB) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := zerolog.Nop()
	librarySvc := library.New(gdb, nil, logger)
	resolver := assets.NewFilesystemResolver(t.TempDir(), "", logger)
	playerSvc := player.New(librarySvc, librarySvc, librarySvc, resolver, sink.NewNull(), nil, logger,
		player.WithPollInterval(time.Hour))
	t.Cleanup(playerSvc.Destroy)

	return New(gdb, testSecret, playerSvc, librarySvc, events.NewBus(), logger), gdb
}

func seedTenant(t *testing.T, gdb *gorm.DB) models.Tenant {
	t.Helper()

	tenant := models.Tenant{ID: "t-1", Name: "Lobby", Timezone: "UTC"}
	if err := gdb.Create(&tenant).Error; err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		track := models.Track{
			ID: id, TenantID: tenant.ID, Title: "Track " + id,
			StorageKey: id + ".mp3", Shuffle: true,
		}
		if err := gdb.Create(&track).Error; err != nil {
			t.Fatalf("create track: %v", err)
		}
	}
	return tenant
}

func authedRequest(t *testing.T, method, target string, body string) *http.Request {
	t.Helper()

	token, err := auth.Issue(testSecret, auth.Claims{UserID: "u1", TenantID: "t-1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(a *API, req *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	a.Routes(router)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthIsPublic(t *testing.T) {
	a, _ := setupAPI(t)

	rr := serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health = %d, want 200", rr.Code)
	}
}

func TestPlayerStateRequiresAuth(t *testing.T) {
	a, _ := setupAPI(t)

	rr := serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/player/state", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated state = %d, want 401", rr.Code)
	}
}

func TestInitializeAndTransport(t *testing.T) {
	a, gdb := setupAPI(t)
	seedTenant(t, gdb)

	rr := serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/initialize", `{"tenant_id":"t-1"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("initialize = %d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/play", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("play = %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"playing":true`) {
		t.Fatalf("play response missing playing=true: %s", rr.Body.String())
	}

	rr = serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/pause", ""))
	if !strings.Contains(rr.Body.String(), `"playing":false`) {
		t.Fatalf("pause response still playing: %s", rr.Body.String())
	}
}

func TestInitializeUnknownTenant(t *testing.T) {
	a, _ := setupAPI(t)

	rr := serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/initialize", `{"tenant_id":"nope"}`))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("initialize unknown tenant = %d, want 404", rr.Code)
	}
}

func TestInitializeFallsBackToClaimTenant(t *testing.T) {
	a, gdb := setupAPI(t)
	seedTenant(t, gdb)

	rr := serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/initialize", `{}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("initialize = %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"tenant_id":"t-1"`) {
		t.Fatalf("expected claim tenant in state: %s", rr.Body.String())
	}
}

func TestVolumeValidation(t *testing.T) {
	a, gdb := setupAPI(t)
	seedTenant(t, gdb)
	serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/initialize", `{"tenant_id":"t-1"}`))

	rr := serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/volume", `{}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing volume = %d, want 400", rr.Code)
	}

	rr = serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/volume", `{"volume":0.5}`))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"volume":0.5`) {
		t.Fatalf("set volume = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestActivateUnknownPlaylist(t *testing.T) {
	a, gdb := setupAPI(t)
	seedTenant(t, gdb)
	serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/initialize", `{"tenant_id":"t-1"}`))

	rr := serve(a, authedRequest(t, http.MethodPost, "/api/v1/player/playlists/missing/activate", ""))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("activate missing playlist = %d, want 404", rr.Code)
	}
}

func TestPlaylistBrowse(t *testing.T) {
	a, gdb := setupAPI(t)
	tenant := seedTenant(t, gdb)

	playlist := models.Playlist{ID: "pl-1", TenantID: tenant.ID, Name: "Evening", Type: models.PlaylistOrdered}
	if err := gdb.Create(&playlist).Error; err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	if err := gdb.Create(&models.PlaylistTrack{PlaylistID: "pl-1", TrackID: "a", Position: 0}).Error; err != nil {
		t.Fatalf("create membership: %v", err)
	}

	rr := serve(a, authedRequest(t, http.MethodGet, "/api/v1/playlists/pl-1", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("get playlist = %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Evening") || !strings.Contains(rr.Body.String(), "Track a") {
		t.Fatalf("playlist response incomplete: %s", rr.Body.String())
	}

	rr = serve(a, authedRequest(t, http.MethodGet, "/api/v1/tenants/t-1/playlists", ""))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "pl-1") {
		t.Fatalf("list playlists = %d body=%s", rr.Code, rr.Body.String())
	}
}
