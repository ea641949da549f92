package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savid/iptv-player/internal/config"
	"github.com/savid/iptv-player/internal/data"
	"github.com/savid/iptv-player/internal/epg"
	"github.com/savid/iptv-player/internal/player"
	"github.com/savid/iptv-player/internal/settings"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server provides the HTTP server with lifecycle management.
type Server struct {
	log       logrus.FieldLogger
	cfg       *config.Config
	store     *data.Store
	settings  *settings.Store
	fetcher   *data.Fetcher
	refresher *data.Refresher
	engine    player.Engine
	server    *http.Server

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer creates a new server instance. engine may be nil, in which case
// a logging engine is used.
func NewServer(log logrus.FieldLogger, cfg *config.Config, engine player.Engine) *Server {
	if engine == nil {
		engine = player.NewLogEngine(log)
	}

	store := data.NewStore()
	settingsStore := settings.NewStore(log, cfg.SettingsPath)
	ingestor := epg.NewIngestor(log)
	fetcher := data.NewFetcher(log, cfg.PlaylistURL, cfg.ExtraEPGURLs(), store, settingsStore, ingestor)
	refresher := data.NewRefresher(log, fetcher, cfg.RefreshInterval)

	return &Server{
		log:       log.WithField("component", "server"),
		cfg:       cfg,
		store:     store,
		settings:  settingsStore,
		fetcher:   fetcher,
		refresher: refresher,
		engine:    engine,
	}
}

// Start starts the server.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("server already running")
	}

	serverCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	if err := s.settings.Load(); err != nil {
		s.log.WithError(err).Warn("Failed to load settings, starting fresh")
	}

	// Fetch initial data
	s.log.Info("Fetching initial data")

	if err := s.fetcher.Refresh(serverCtx); err != nil {
		cancel()

		return fmt.Errorf("failed to fetch initial data: %w", err)
	}

	if err := s.refresher.Start(serverCtx); err != nil {
		cancel()

		return fmt.Errorf("failed to start refresher: %w", err)
	}

	go s.startStatusLogger(serverCtx)
	go s.consumePlaybackEvents(serverCtx)

	routes := NewRoutes(s.log, s.store, s.settings, s.fetcher, s.engine)

	s.server = &http.Server{
		Addr:         s.cfg.ListenAddr(),
		Handler:      routes.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	go s.run(serverCtx)

	s.log.WithField("addr", s.cfg.ListenAddr()).Info("Server started")

	return nil
}

// Stop stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	if done != nil {
		<-done
	}

	if err := s.refresher.Stop(); err != nil {
		s.log.WithError(err).Warn("Failed to stop refresher")
	}

	s.fetcher.Shutdown()

	if err := s.engine.Stop(); err != nil {
		s.log.WithError(err).Warn("Failed to stop playback")
	}

	s.log.Info("Server stopped")

	return nil
}

func (s *Server) run(ctx context.Context) {
	defer close(s.done)

	errCh := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down server")
	case err := <-errCh:
		if err != nil {
			s.log.WithError(err).Error("Server error")
		}

		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Warn("Server shutdown error")
	}
}

// startStatusLogger logs session stats every minute.
func (s *Server) startStatusLogger(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	s.logStatus()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logStatus()
		}
	}
}

func (s *Server) logStatus() {
	if !s.store.HasData() {
		s.log.Warn("No playlist data available for status")

		return
	}

	stats := s.store.Index().Stats()

	s.log.WithFields(logrus.Fields{
		"channels":      len(s.store.Channels()),
		"groups":        len(s.store.Groups()),
		"epgChannels":   stats.Channels,
		"epgProgrammes": stats.Programmes,
		"epgAliases":    stats.Aliases,
	}).Info("Session status")
}

// consumePlaybackEvents drains the engine's event stream into the log so
// buffered events never pile up when no other consumer is attached.
func (s *Server) consumePlaybackEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.engine.Events():
			if !ok {
				return
			}

			entry := s.log.WithFields(logrus.Fields{
				"kind": ev.Kind,
				"url":  ev.URL,
			})

			if ev.Kind == player.EventError {
				entry.WithField("error", ev.Err).Warn("Playback event")

				continue
			}

			entry.Debug("Playback event")
		}
	}
}
