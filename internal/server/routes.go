// Package server provides the HTTP server and routing.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/savid/iptv-player/internal/data"
	"github.com/savid/iptv-player/internal/player"
	"github.com/savid/iptv-player/internal/settings"
)

const defaultGuideCount = 3

// Routes sets up all HTTP routes.
type Routes struct {
	log      logrus.FieldLogger
	store    *data.Store
	settings *settings.Store
	fetcher  *data.Fetcher
	engine   player.Engine
}

// NewRoutes creates a new routes instance.
func NewRoutes(
	log logrus.FieldLogger,
	store *data.Store,
	settingsStore *settings.Store,
	fetcher *data.Fetcher,
	engine player.Engine,
) *Routes {
	return &Routes{
		log:      log.WithField("component", "routes"),
		store:    store,
		settings: settingsStore,
		fetcher:  fetcher,
		engine:   engine,
	}
}

// Handler returns the main HTTP handler with all routes.
func (r *Routes) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", r.handleStatus)
	mux.HandleFunc("GET /channels", r.handleChannels)
	mux.HandleFunc("GET /groups", r.handleGroups)
	mux.HandleFunc("GET /channels/{id}/guide", r.handleGuide)
	mux.HandleFunc("POST /channels/{id}/play", r.handlePlay)
	mux.HandleFunc("POST /channels/{id}/source/next", r.handleNextSource)
	mux.HandleFunc("POST /player/pause", r.handlePause)
	mux.HandleFunc("POST /player/stop", r.handleStop)
	mux.HandleFunc("GET /lineup.json", r.handleLineup)
	mux.HandleFunc("POST /refresh", r.handleRefresh)
	mux.Handle("GET /metrics", promhttp.Handler())

	return r.loggingMiddleware(mux)
}

func (r *Routes) handleStatus(w http.ResponseWriter, _ *http.Request) {
	stats := r.store.Index().Stats()

	status := struct {
		Status        string `json:"status"`
		HasData       bool   `json:"hasData"`
		LastSync      string `json:"lastSync"`
		Channels      int    `json:"channels"`
		EPGChannels   int    `json:"epgChannels"`
		EPGProgrammes int    `json:"epgProgrammes"`
		EPGFeeds      int    `json:"epgFeeds"`
	}{
		Status:        "ok",
		HasData:       r.store.HasData(),
		LastSync:      r.store.LastSync().UTC().Format(time.RFC3339),
		Channels:      len(r.store.Channels()),
		EPGChannels:   stats.Channels,
		EPGProgrammes: stats.Programmes,
		EPGFeeds:      stats.Feeds,
	}

	r.writeJSON(w, http.StatusOK, status)
}

func (r *Routes) handleChannels(w http.ResponseWriter, req *http.Request) {
	if !r.store.HasData() {
		http.Error(w, "No playlist data available", http.StatusServiceUnavailable)

		return
	}

	channels := r.store.ChannelsByGroup(req.URL.Query().Get("group"))

	r.writeJSON(w, http.StatusOK, channels)
}

func (r *Routes) handleGroups(w http.ResponseWriter, _ *http.Request) {
	r.writeJSON(w, http.StatusOK, r.store.Groups())
}

func (r *Routes) handleGuide(w http.ResponseWriter, req *http.Request) {
	id, ok := r.channelID(w, req)
	if !ok {
		return
	}

	count := defaultGuideCount

	if raw := req.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid count", http.StatusBadRequest)

			return
		}

		count = parsed
	}

	guide, found := r.store.GuideFor(id, count)
	if !found {
		http.Error(w, "Channel not found", http.StatusNotFound)

		return
	}

	r.writeJSON(w, http.StatusOK, guide)
}

func (r *Routes) handlePlay(w http.ResponseWriter, req *http.Request) {
	id, ok := r.channelID(w, req)
	if !ok {
		return
	}

	ch, found := r.store.Channel(id)
	if !found {
		http.Error(w, "Channel not found", http.StatusNotFound)

		return
	}

	source := ch.CurrentSource()
	if source.URL == "" {
		http.Error(w, "Channel has no sources", http.StatusConflict)

		return
	}

	if err := r.engine.Play(source.URL); err != nil {
		r.log.WithError(err).WithField("channel", ch.Name).Error("Failed to start playback")
		http.Error(w, "Failed to start playback", http.StatusInternalServerError)

		return
	}

	r.writeJSON(w, http.StatusOK, struct {
		Channel string `json:"channel"`
		URL     string `json:"url"`
	}{
		Channel: ch.Name,
		URL:     source.URL,
	})
}

func (r *Routes) handleNextSource(w http.ResponseWriter, req *http.Request) {
	id, ok := r.channelID(w, req)
	if !ok {
		return
	}

	source, found := r.store.CycleSource(id)
	if !found {
		http.Error(w, "Channel not found", http.StatusNotFound)

		return
	}

	if ch, chFound := r.store.Channel(id); chFound {
		if err := r.settings.Update(ch); err != nil {
			r.log.WithError(err).Warn("Failed to persist source selection")
		}
	}

	r.writeJSON(w, http.StatusOK, source)
}

func (r *Routes) handlePause(w http.ResponseWriter, _ *http.Request) {
	if err := r.engine.Pause(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (r *Routes) handleStop(w http.ResponseWriter, _ *http.Request) {
	if err := r.engine.Stop(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// lineupEntry mirrors the HDHomeRun lineup format so DVR software can
// consume the channel list directly.
type lineupEntry struct {
	GuideNumber string `json:"GuideNumber"`
	GuideName   string `json:"GuideName"`
	URL         string `json:"URL"`
}

func (r *Routes) handleLineup(w http.ResponseWriter, _ *http.Request) {
	channels := r.store.Channels()
	lineup := make([]lineupEntry, 0, len(channels))

	for _, ch := range channels {
		if ch.Hidden {
			continue
		}

		source := ch.CurrentSource()
		if source.URL == "" {
			continue
		}

		lineup = append(lineup, lineupEntry{
			GuideNumber: strconv.Itoa(ch.ID),
			GuideName:   ch.Name,
			URL:         source.URL,
		})
	}

	r.writeJSON(w, http.StatusOK, lineup)
}

func (r *Routes) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if err := r.fetcher.Refresh(req.Context()); err != nil {
		r.log.WithError(err).Error("Manual refresh failed")
		http.Error(w, fmt.Sprintf("Refresh failed: %v", err), http.StatusBadGateway)

		return
	}

	r.writeJSON(w, http.StatusOK, struct {
		Status   string `json:"status"`
		Channels int    `json:"channels"`
	}{
		Status:   "ok",
		Channels: len(r.store.Channels()),
	})
}

func (r *Routes) channelID(w http.ResponseWriter, req *http.Request) (int, bool) {
	id, err := strconv.Atoi(req.PathValue("id"))
	if err != nil || id < 1 {
		http.Error(w, "Invalid channel id", http.StatusBadRequest)

		return 0, false
	}

	return id, true
}

func (r *Routes) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		r.log.WithError(err).Error("Failed to write JSON response")
	}
}

func (r *Routes) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.log.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
			"remote": req.RemoteAddr,
		}).Info("HTTP request")

		next.ServeHTTP(w, req)
	})
}
