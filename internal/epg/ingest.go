package epg

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/savid/iptv-player/internal/xmltv"
)

const (
	fetchTimeout = 60 * time.Second
	userAgent    = "iptv-player/1.0"
	maxFeedSize  = 500 * 1024 * 1024 // 500MB for large guide files
)

// Ingestor downloads XMLTV feeds and populates a guide index. Feeds within
// one batch are fetched sequentially, which bounds peak memory to one
// in-flight document and keeps first-registration-wins aliasing meaningful.
type Ingestor struct {
	log     logrus.FieldLogger
	client  *http.Client
	limiter *rate.Limiter
}

// NewIngestor creates an ingestor with a 60-second per-request timeout and
// one-feed-per-second pacing between downloads.
func NewIngestor(log logrus.FieldLogger) *Ingestor {
	return &Ingestor{
		log: log.WithField("component", "ingestor"),
		client: &http.Client{
			Timeout: fetchTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// feedResult is the per-URL outcome aggregated by LoadEPG: failure of one
// feed is a value here, never a control-flow jump out of the batch.
type feedResult struct {
	channels   int
	programmes int
	skipped    int
	err        error
}

// LoadEPG ingests every not-yet-ingested URL into the index, one at a time.
// Network or parse failures are isolated per URL: the failed feed is logged
// and the batch continues. Only context cancellation short-circuits the
// batch, and it propagates unswallowed; data from feeds completed before the
// cancellation stays intact.
func (ing *Ingestor) LoadEPG(ctx context.Context, idx *Index, urls []string) error {
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}

		url = strings.TrimSpace(url)
		if url == "" || idx.HasIngested(url) {
			continue
		}

		if err := ing.limiter.Wait(ctx); err != nil {
			return err
		}

		res := ing.ingestOne(ctx, idx, url)

		if res.err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			feedsIngestedTotal.WithLabelValues("error").Inc()
			ing.log.WithError(res.err).WithField("url", url).Warn("Failed to ingest EPG feed")

			// A malformed feed is recorded so it is not retried this session.
			idx.MarkIngested(url)

			continue
		}

		feedsIngestedTotal.WithLabelValues("ok").Inc()
		idx.MarkIngested(url)

		ing.log.WithFields(logrus.Fields{
			"url":        url,
			"channels":   res.channels,
			"programmes": res.programmes,
			"skipped":    res.skipped,
		}).Info("Ingested EPG feed")
	}

	return nil
}

// ingestOne downloads and stream-parses a single feed into the index.
func (ing *Ingestor) ingestOne(ctx context.Context, idx *Index, url string) feedResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return feedResult{err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := ing.client.Do(req)
	if err != nil {
		return feedResult{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return feedResult{err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	var body io.Reader = resp.Body

	// Transport-level compression. Payload-level gzip (a .gz file behind a
	// plain response) is sniffed separately by the document reader.
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return feedResult{err: fmt.Errorf("failed to create gzip reader: %w", gzErr)}
		}
		defer gz.Close()

		body = gz
	case "br":
		body = brotli.NewReader(resp.Body)
	}

	sink := &indexSink{idx: idx}

	if err := xmltv.Decode(io.LimitReader(body, maxFeedSize), sink); err != nil {
		// Partial data already indexed stays; the sort below keeps it valid.
		idx.FinishDocument()

		return feedResult{err: fmt.Errorf("failed to parse feed: %w", err)}
	}

	idx.FinishDocument()

	return feedResult{
		channels:   sink.channels,
		programmes: sink.programmes,
		skipped:    sink.skipped,
	}
}

// indexSink adapts streaming XMLTV elements onto the index.
type indexSink struct {
	idx        *Index
	channels   int
	programmes int
	skipped    int
}

// Channel registers every display-name, plus its pre-space prefix token
// ("CCTV-13" out of "CCTV-13 News"), as aliases of the channel-id.
func (s *indexSink) Channel(id string, displayNames []string) {
	if id == "" {
		return
	}

	s.channels++

	for _, name := range displayNames {
		s.idx.RegisterAlias(name, id)

		if i := strings.IndexByte(name, ' '); i > 0 {
			s.idx.RegisterAlias(name[:i], id)
		}
	}
}

// Programme converts a raw element into an indexed Programme. Elements with
// a missing channel, missing timestamps, or unparsable timestamps are
// skipped; a missing title defaults to "Unknown".
func (s *indexSink) Programme(p xmltv.Programme) {
	if p.Channel == "" || p.Start == "" || p.Stop == "" {
		s.skipped++
		programmesSkippedTotal.Inc()

		return
	}

	start, ok := xmltv.ParseTime(p.Start)
	if !ok {
		s.skipped++
		programmesSkippedTotal.Inc()

		return
	}

	stop, ok := xmltv.ParseTime(p.Stop)
	if !ok {
		s.skipped++
		programmesSkippedTotal.Inc()

		return
	}

	title := p.Title
	if title == "" {
		title = "Unknown"
	}

	if s.idx.AddProgramme(Programme{
		ChannelID:   p.Channel,
		Title:       title,
		Description: p.Desc,
		Category:    p.Category,
		Start:       start,
		Stop:        stop,
	}) {
		s.programmes++
		programmesIngestedTotal.Inc()
	}
}

// IngestDocument stream-parses one already-fetched XMLTV document (plain or
// gzip) into the index. Used by offline tooling that works from local files.
func IngestDocument(idx *Index, r io.Reader) (channels, programmes int, err error) {
	sink := &indexSink{idx: idx}

	err = xmltv.Decode(r, sink)

	idx.FinishDocument()

	return sink.channels, sink.programmes, err
}
