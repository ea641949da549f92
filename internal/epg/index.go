package epg

import (
	"sort"
	"strings"
	"sync"
)

// AliasEntry maps a display-name (or its pre-space prefix token) to the
// owning XMLTV channel-id.
type AliasEntry struct {
	Name      string
	ChannelID string
}

// channelGuide holds one channel's programmes plus the canonical id spelling
// first seen for it.
type channelGuide struct {
	id         string
	programmes []Programme
	starts     map[int64]bool
}

// Index is the in-memory guide store for one playlist session: a
// case-insensitive programme map keyed by XMLTV channel-id, an
// insertion-ordered alias table (first-registration-wins), and the set of
// feed URLs already ingested this session.
//
// An Index is safe for concurrent use. New playlist loads build a fresh
// Index and swap the reference rather than mutating in place, so in-flight
// readers always see a consistent snapshot.
type Index struct {
	mu sync.RWMutex

	channels     map[string]*channelGuide
	channelOrder []string
	aliases      map[string]string
	aliasOrder   []AliasEntry
	ingested     map[string]bool
	dirty        map[string]bool
}

// NewIndex creates an empty guide index.
func NewIndex() *Index {
	return &Index{
		channels: make(map[string]*channelGuide),
		aliases:  make(map[string]string),
		ingested: make(map[string]bool),
		dirty:    make(map[string]bool),
	}
}

// RegisterAlias records a display-name to channel-id mapping. The first
// registration of a name wins; a later duplicate never hijacks an
// established mapping. Blank names and ids are ignored.
func (idx *Index) RegisterAlias(name, channelID string) {
	name = strings.TrimSpace(name)
	if name == "" || channelID == "" {
		return
	}

	key := strings.ToLower(name)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.aliases[key]; exists {
		return
	}

	idx.aliases[key] = channelID
	idx.aliasOrder = append(idx.aliasOrder, AliasEntry{Name: name, ChannelID: channelID})
}

// AddProgramme appends a programme to its channel's list. A programme whose
// start duplicates an existing entry for the same channel is skipped, which
// keeps the earlier feed's entry when multiple feeds cover one channel.
// Reports whether the programme was added.
func (idx *Index) AddProgramme(p Programme) bool {
	if p.ChannelID == "" {
		return false
	}

	key := strings.ToLower(p.ChannelID)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	guide, ok := idx.channels[key]
	if !ok {
		guide = &channelGuide{id: p.ChannelID, starts: make(map[int64]bool)}
		idx.channels[key] = guide
		idx.channelOrder = append(idx.channelOrder, key)
	}

	start := p.Start.Unix()
	if guide.starts[start] {
		return false
	}

	guide.starts[start] = true
	guide.programmes = append(guide.programmes, p)
	idx.dirty[key] = true

	return true
}

// FinishDocument re-sorts the programme lists touched since the last call,
// ascending by start time. Called after each ingested document so ordering
// holds across multi-feed sessions.
func (idx *Index) FinishDocument() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for key := range idx.dirty {
		guide := idx.channels[key]
		sort.SliceStable(guide.programmes, func(i, j int) bool {
			return guide.programmes[i].Start.Before(guide.programmes[j].Start)
		})
	}

	idx.dirty = make(map[string]bool)
}

// MarkIngested records a feed URL as handled for this session.
func (idx *Index) MarkIngested(url string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.ingested[strings.ToLower(strings.TrimSpace(url))] = true
}

// HasIngested reports whether a feed URL was already handled this session.
func (idx *Index) HasIngested(url string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.ingested[strings.ToLower(strings.TrimSpace(url))]
}

// Clear discards all guide data, aliases, and the ingested-URL set.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.channels = make(map[string]*channelGuide)
	idx.channelOrder = nil
	idx.aliases = make(map[string]string)
	idx.aliasOrder = nil
	idx.ingested = make(map[string]bool)
	idx.dirty = make(map[string]bool)
}

// CanonicalID returns the stored spelling of a channel-id matched
// case-insensitively, and whether the channel has any programmes.
func (idx *Index) CanonicalID(id string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.canonicalIDLocked(id)
}

func (idx *Index) canonicalIDLocked(id string) (string, bool) {
	if id == "" {
		return "", false
	}

	guide, ok := idx.channels[strings.ToLower(id)]
	if !ok {
		return "", false
	}

	return guide.id, true
}

// AliasTarget returns the channel-id an alias maps to.
func (idx *Index) AliasTarget(name string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	target, ok := idx.aliases[strings.ToLower(strings.TrimSpace(name))]

	return target, ok
}

// Aliases returns a copy of the alias table in registration order.
func (idx *Index) Aliases() []AliasEntry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]AliasEntry, len(idx.aliasOrder))
	copy(out, idx.aliasOrder)

	return out
}

// ProgrammesFor returns a copy of the time-ordered programme list for a
// channel-id (case-insensitive).
func (idx *Index) ProgrammesFor(id string) []Programme {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	guide, ok := idx.channels[strings.ToLower(id)]
	if !ok {
		return nil
	}

	out := make([]Programme, len(guide.programmes))
	copy(out, guide.programmes)

	return out
}

// Stats summarizes index contents for status reporting.
type Stats struct {
	Channels   int `json:"channels"`
	Programmes int `json:"programmes"`
	Aliases    int `json:"aliases"`
	Feeds      int `json:"feeds"`
}

// Stats returns current index counters.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s := Stats{
		Channels: len(idx.channels),
		Aliases:  len(idx.aliasOrder),
		Feeds:    len(idx.ingested),
	}

	for _, guide := range idx.channels {
		s.Programmes += len(guide.programmes)
	}

	return s
}
