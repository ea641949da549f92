// Package data provides session state and fetching for playlists and EPG data.
package data

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/savid/iptv-player/internal/epg"
	"github.com/savid/iptv-player/internal/m3u"
)

// Store holds one playlist session: the merged channel list and the guide
// index. A new playlist load replaces both wholesale; the index reference is
// swapped atomically so in-flight guide queries finish against a consistent
// snapshot.
type Store struct {
	mu sync.RWMutex

	channels []*m3u.Channel
	byID     map[int]*m3u.Channel
	epgURLs  []string
	index    *epg.Index
	lastSync time.Time
}

// NewStore creates an empty store with an empty guide index, so queries
// before the first load simply find nothing.
func NewStore() *Store {
	return &Store{
		byID:  make(map[int]*m3u.Channel),
		index: epg.NewIndex(),
	}
}

// SetPlaylist replaces the session's channels and EPG URL list and swaps in
// a fresh guide index, returning it for the ingestor to populate. The old
// index is left untouched for readers still holding it.
func (s *Store) SetPlaylist(channels []*m3u.Channel, epgURLs []string) *epg.Index {
	index := epg.NewIndex()
	byID := make(map[int]*m3u.Channel, len(channels))

	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels = channels
	s.byID = byID
	s.epgURLs = epgURLs
	s.index = index
	s.lastSync = time.Now()

	return index
}

// Channels returns the session's channels in playlist order.
func (s *Store) Channels() []*m3u.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*m3u.Channel, len(s.channels))
	copy(out, s.channels)

	return out
}

// Channel looks up a channel by its session-scoped id.
func (s *Store) Channel(id int) (*m3u.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.byID[id]

	return ch, ok
}

// Index returns the current guide index snapshot.
func (s *Store) Index() *epg.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.index
}

// EPGURLs returns the EPG feed URLs collected from the current playlist.
func (s *Store) EPGURLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.epgURLs))
	copy(out, s.epgURLs)

	return out
}

// LastSync returns when the playlist was last loaded.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSync
}

// HasData reports whether a playlist has been loaded.
func (s *Store) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.channels != nil
}

// CycleSource advances a channel's source cursor, wrapping around, and
// returns the newly selected source.
func (s *Store) CycleSource(id int) (m3u.Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.byID[id]
	if !ok {
		return m3u.Source{}, false
	}

	return ch.NextSource(), true
}

// Groups returns all distinct channel groups, sorted alphabetically.
func (s *Store) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	groups := make([]string, 0)

	for _, ch := range s.channels {
		if ch.Group != "" && !seen[ch.Group] {
			seen[ch.Group] = true
			groups = append(groups, ch.Group)
		}
	}

	sort.Strings(groups)

	return groups
}

// ChannelsByGroup returns channels matching a group (case-insensitive).
// An empty group returns all channels.
func (s *Store) ChannelsByGroup(group string) []*m3u.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if group == "" {
		out := make([]*m3u.Channel, len(s.channels))
		copy(out, s.channels)

		return out
	}

	filtered := make([]*m3u.Channel, 0)

	for _, ch := range s.channels {
		if strings.EqualFold(ch.Group, group) {
			filtered = append(filtered, ch)
		}
	}

	return filtered
}

// Guide is the now/next view for one channel.
type Guide struct {
	Current  *epg.Programme  `json:"current,omitempty"`
	Upcoming []epg.Programme `json:"upcoming"`
}

// GuideFor composes the guide view for a channel: the currently-airing
// programme plus up to count upcoming ones. When nothing airs right now but
// upcoming programmes exist, the first upcoming entry is promoted to
// "current" and removed from the upcoming list, which papers over feeds with
// schedule gaps.
func (s *Store) GuideFor(id, count int) (Guide, bool) {
	return s.guideAt(id, count, time.Now())
}

func (s *Store) guideAt(id, count int, now time.Time) (Guide, bool) {
	s.mu.RLock()
	ch, ok := s.byID[id]
	index := s.index
	s.mu.RUnlock()

	if !ok {
		return Guide{}, false
	}

	guide := Guide{Upcoming: []epg.Programme{}}

	current, hasCurrent := index.CurrentProgrammeAt(ch.TVGID, ch.Name, now)
	upcoming := index.UpcomingProgrammesAt(ch.TVGID, ch.Name, now, count)

	if !hasCurrent && len(upcoming) > 0 {
		current = upcoming[0]
		upcoming = upcoming[1:]
		hasCurrent = true
	}

	if hasCurrent {
		guide.Current = &current
	}

	guide.Upcoming = append(guide.Upcoming, upcoming...)

	return guide, true
}
