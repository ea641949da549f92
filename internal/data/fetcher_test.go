package data

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/savid/iptv-player/internal/epg"
	"github.com/savid/iptv-player/internal/settings"
)

const testPlaylist = `#EXTM3U x-tvg-url="http://example.com/epg.xml"
#EXTINF:-1 tvg-id="espn.us" group-title="Sports",ESPN
http://example.com/espn
#EXTINF:-1 group-title="News",CNN
http://example.com/cnn
`

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func newTestFetcher(t *testing.T, playlistSrc string, extraEPGURLs []string) (*Fetcher, *Store) {
	t.Helper()

	log := testLogger()
	store := NewStore()
	settingsStore := settings.NewStore(log, filepath.Join(t.TempDir(), "settings.json"))

	return NewFetcher(log, playlistSrc, extraEPGURLs, store, settingsStore, epg.NewIngestor(log)), store
}

func TestRefresh_FromLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u")
	require.NoError(t, os.WriteFile(path, []byte(testPlaylist), 0o644))

	f, store := newTestFetcher(t, path, nil)
	defer f.Shutdown()

	require.NoError(t, f.Refresh(context.Background()))

	require.Len(t, store.Channels(), 2)
	require.Equal(t, []string{"http://example.com/epg.xml"}, store.EPGURLs())
}

func TestRefresh_FromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testPlaylist))
	}))
	defer srv.Close()

	f, store := newTestFetcher(t, srv.URL, nil)
	defer f.Shutdown()

	require.NoError(t, f.Refresh(context.Background()))
	require.Len(t, store.Channels(), 2)
}

func TestRefresh_GzipResponse(t *testing.T) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testPlaylist))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	f, store := newTestFetcher(t, srv.URL, nil)
	defer f.Shutdown()

	require.NoError(t, f.Refresh(context.Background()))
	require.Len(t, store.Channels(), 2)
}

func TestRefresh_EmptyPlaylistIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u")
	require.NoError(t, os.WriteFile(path, []byte("#EXTM3U\n"), 0o644))

	f, store := newTestFetcher(t, path, nil)

	require.Error(t, f.Refresh(context.Background()))
	require.False(t, store.HasData())
}

func TestRefresh_HTTPErrorIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, srv.URL, nil)

	require.Error(t, f.Refresh(context.Background()))
}

func TestRefresh_MergesExtraEPGURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u")
	require.NoError(t, os.WriteFile(path, []byte(testPlaylist), 0o644))

	// The second extra duplicates the playlist's own feed (case differs).
	extras := []string{"http://extra.example.com/epg.xml", "HTTP://EXAMPLE.COM/EPG.XML"}

	f, store := newTestFetcher(t, path, extras)
	defer f.Shutdown()

	require.NoError(t, f.Refresh(context.Background()))

	require.Equal(t, []string{
		"http://example.com/epg.xml",
		"http://extra.example.com/epg.xml",
	}, store.EPGURLs())
}

func TestRefresh_IngestsEPGInBackground(t *testing.T) {
	feed := `<tv>
  <channel id="espn.us"><display-name>ESPN</display-name></channel>
  <programme channel="espn.us" start="20260104120000 +0000" stop="20260104130000 +0000">
    <title>SportsCenter</title>
  </programme>
</tv>`

	epgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer epgSrv.Close()

	playlist := "#EXTM3U x-tvg-url=\"" + epgSrv.URL + "\"\n" +
		"#EXTINF:-1 tvg-id=\"espn.us\",ESPN\nhttp://example.com/espn\n"

	path := filepath.Join(t.TempDir(), "playlist.m3u")
	require.NoError(t, os.WriteFile(path, []byte(playlist), 0o644))

	f, store := newTestFetcher(t, path, nil)
	defer f.Shutdown()

	require.NoError(t, f.Refresh(context.Background()))
	f.WaitEPG()

	require.Len(t, store.Index().ProgrammesFor("espn.us"), 1)
	require.True(t, store.Index().HasIngested(epgSrv.URL))
}

func TestMergeURLs(t *testing.T) {
	got := mergeURLs(
		[]string{"http://a.example.com", "", "http://b.example.com"},
		[]string{"HTTP://A.EXAMPLE.COM", "http://c.example.com"},
	)

	require.Equal(t, []string{
		"http://a.example.com",
		"http://b.example.com",
		"http://c.example.com",
	}, got)
}
