/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server assembles the playback service: database, cache, library,
// asset resolver, audio sink, playback session, event bridge, and the HTTP
// control plane.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/ambientfm/internal/api"
	"github.com/friendsincode/ambientfm/internal/assets"
	"github.com/friendsincode/ambientfm/internal/cache"
	"github.com/friendsincode/ambientfm/internal/config"
	"github.com/friendsincode/ambientfm/internal/db"
	"github.com/friendsincode/ambientfm/internal/eventbus"
	"github.com/friendsincode/ambientfm/internal/events"
	"github.com/friendsincode/ambientfm/internal/library"
	"github.com/friendsincode/ambientfm/internal/player"
	"github.com/friendsincode/ambientfm/internal/sink"
	"github.com/friendsincode/ambientfm/internal/sink/beepsink"
	"github.com/friendsincode/ambientfm/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db      *gorm.DB
	cache   *cache.Cache
	library *library.Service
	player  *player.Service
	api     *api.API
	bus     *events.Bus
	bridge  *eventbus.NATSBridge
}

// New wires all dependencies and returns a ready-to-run server.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("ambientfm-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The event feed holds its connection open.
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	if s.cfg.RedisAddr != "" {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		c, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache unavailable, queries go straight to the database")
		} else {
			s.cache = c
			s.DeferClose(c.Close)
		}
	}

	s.library = library.New(s.db, s.cache, s.logger)

	resolver, err := s.buildResolver()
	if err != nil {
		return err
	}

	audioSink, err := s.buildSink()
	if err != nil {
		return err
	}
	s.DeferClose(audioSink.Close)

	s.player = player.New(
		s.library, s.library, s.library,
		resolver, audioSink, s.bus, s.logger,
		player.WithPollInterval(s.cfg.PollInterval),
	)
	s.player.SetVolume(s.cfg.DefaultVolume)

	bridge, err := eventbus.NewNATSBridge(s.cfg.NATSURL, s.bus, []events.EventType{
		events.EventPlayerState,
		events.EventTrackChanged,
		events.EventScheduleActivated,
		events.EventScheduleReleased,
		events.EventTenantSwitched,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("starting event bridge: %w", err)
	}
	s.bridge = bridge

	s.api = api.New(s.db, []byte(s.cfg.JWTSigningKey), s.player, s.library, s.bus, s.logger)
	return nil
}

func (s *Server) buildResolver() (assets.Resolver, error) {
	switch s.cfg.AssetBackend {
	case config.AssetS3:
		return assets.NewS3Resolver(context.Background(), assets.S3Config{
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			Region:          s.cfg.S3Region,
			Bucket:          s.cfg.S3Bucket,
			Endpoint:        s.cfg.S3Endpoint,
			UsePathStyle:    s.cfg.S3UsePathStyle,
			PresignTTL:      s.cfg.S3PresignTTL,
		}, s.logger)
	default:
		return assets.NewFilesystemResolver(s.cfg.MediaRoot, s.cfg.MediaBaseURL, s.logger), nil
	}
}

func (s *Server) buildSink() (player.Sink, error) {
	switch s.cfg.SinkBackend {
	case config.SinkNull:
		return sink.NewNull(), nil
	default:
		return beepsink.New(s.logger), nil
	}
}

// Start begins serving and, when a default tenant is configured, brings up
// its playback session.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.DefaultTenant != "" {
		if err := s.player.Initialize(ctx, s.cfg.DefaultTenant); err != nil {
			return fmt.Errorf("initializing default tenant: %w", err)
		}
	}

	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener and tears the session down.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.player.Destroy()
	s.bridge.Close()
	return err
}

// HTTPServer exposes the underlying listener for the caller's lifecycle.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Player exposes the playback session, used by CLI commands.
func (s *Server) Player() *player.Service {
	return s.player
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
