package data

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savid/iptv-player/internal/epg"
	"github.com/savid/iptv-player/internal/m3u"
	"github.com/savid/iptv-player/internal/settings"
)

const (
	playlistTimeout = 5 * time.Minute
	maxPlaylistSize = 100 * 1024 * 1024 // 100MB
)

// Fetcher loads the playlist (from URL or local file), rebuilds the session
// in the store, and drives EPG ingestion for the collected feed URLs. At
// most one EPG ingest runs at a time: a new playlist load cancels the
// previous in-flight ingest before starting its own.
type Fetcher struct {
	log          logrus.FieldLogger
	httpClient   *http.Client
	playlistSrc  string
	extraEPGURLs []string
	store        *Store
	settings     *settings.Store
	ingestor     *epg.Ingestor

	mu           sync.Mutex
	cancelIngest context.CancelFunc
	ingestDone   chan struct{}
}

// NewFetcher creates a fetcher. settingsStore may be nil when no
// customization persistence is configured.
func NewFetcher(
	log logrus.FieldLogger,
	playlistSrc string,
	extraEPGURLs []string,
	store *Store,
	settingsStore *settings.Store,
	ingestor *epg.Ingestor,
) *Fetcher {
	return &Fetcher{
		log: log.WithField("component", "fetcher"),
		httpClient: &http.Client{
			Timeout: playlistTimeout,
		},
		playlistSrc:  playlistSrc,
		extraEPGURLs: extraEPGURLs,
		store:        store,
		settings:     settingsStore,
		ingestor:     ingestor,
	}
}

// Refresh loads and parses the playlist, swaps the session state, and kicks
// off EPG ingestion in the background. ctx must outlive the background
// ingest; cancelling it also cancels the ingest.
func (f *Fetcher) Refresh(ctx context.Context) error {
	f.log.WithField("source", f.playlistSrc).Info("Loading playlist")

	content, err := f.loadPlaylist(ctx)
	if err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}

	channels, epgURLs := m3u.Parse(string(content))
	if len(channels) == 0 {
		return errors.New("playlist contains no channels")
	}

	if f.settings != nil {
		f.settings.Apply(channels)
	}

	epgURLs = mergeURLs(epgURLs, f.extraEPGURLs)

	index := f.store.SetPlaylist(channels, epgURLs)

	f.log.WithFields(logrus.Fields{
		"channels": len(channels),
		"epgUrls":  len(epgURLs),
	}).Info("Playlist loaded")

	f.logGroupSummary(channels)
	f.startIngest(ctx, index, epgURLs)

	return nil
}

// WaitEPG blocks until the current background EPG ingest finishes. Used by
// callers that need guide data before proceeding.
func (f *Fetcher) WaitEPG() {
	f.mu.Lock()
	done := f.ingestDone
	f.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Shutdown cancels any in-flight EPG ingest and waits for it to stop.
func (f *Fetcher) Shutdown() {
	f.mu.Lock()
	cancel := f.cancelIngest
	done := f.ingestDone
	f.cancelIngest = nil
	f.ingestDone = nil
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		<-done
	}
}

// startIngest cancels the previous ingest, waits for it to wind down, and
// launches ingestion of the new index's feeds.
func (f *Fetcher) startIngest(ctx context.Context, index *epg.Index, urls []string) {
	f.mu.Lock()

	if f.cancelIngest != nil {
		f.cancelIngest()
	}

	prevDone := f.ingestDone

	f.mu.Unlock()

	if prevDone != nil {
		<-prevDone
	}

	if len(urls) == 0 {
		f.log.Info("No EPG feeds to ingest")

		return
	}

	ingestCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	f.mu.Lock()
	f.cancelIngest = cancel
	f.ingestDone = done
	f.mu.Unlock()

	go func() {
		defer close(done)

		if err := f.ingestor.LoadEPG(ingestCtx, index, urls); err != nil {
			if errors.Is(err, context.Canceled) {
				f.log.Info("EPG ingest cancelled")

				return
			}

			f.log.WithError(err).Warn("EPG ingest stopped")

			return
		}

		stats := index.Stats()
		f.log.WithFields(logrus.Fields{
			"channels":   stats.Channels,
			"programmes": stats.Programmes,
			"aliases":    stats.Aliases,
		}).Info("EPG ingest complete")
	}()
}

// loadPlaylist fetches the playlist from a URL or reads it from disk.
func (f *Fetcher) loadPlaylist(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(f.playlistSrc, "http://") || strings.HasPrefix(f.playlistSrc, "https://") {
		return f.fetch(ctx, f.playlistSrc)
	}

	return os.ReadFile(f.playlistSrc)
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body

	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gzReader, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", gzErr)
		}
		defer gzReader.Close()

		reader = gzReader
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxPlaylistSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// logGroupSummary logs a per-group channel count at debug level.
func (f *Fetcher) logGroupSummary(channels []*m3u.Channel) {
	groupCounts := make(map[string]int, 32)

	for _, ch := range channels {
		group := ch.Group
		if group == "" {
			group = "(no group)"
		}

		groupCounts[group]++
	}

	f.log.WithField("groups", len(groupCounts)).Info("Channel groups summary")

	for group, count := range groupCounts {
		f.log.WithFields(logrus.Fields{
			"group":    group,
			"channels": count,
		}).Debug("Group")
	}
}

// mergeURLs appends extras to urls, preserving order and suppressing
// case-insensitive duplicates.
func mergeURLs(urls, extras []string) []string {
	seen := make(map[string]bool, len(urls)+len(extras))
	out := make([]string, 0, len(urls)+len(extras))

	for _, u := range urls {
		key := strings.ToLower(strings.TrimSpace(u))
		if key == "" || seen[key] {
			continue
		}

		seen[key] = true
		out = append(out, u)
	}

	for _, u := range extras {
		key := strings.ToLower(strings.TrimSpace(u))
		if key == "" || seen[key] {
			continue
		}

		seen[key] = true
		out = append(out, u)
	}

	return out
}
