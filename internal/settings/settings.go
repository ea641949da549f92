// Package settings persists per-channel user customization as a JSON blob
// on disk. Channels are keyed "name|firstSourceUrl" so customization
// survives playlist reloads and id reassignment.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/savid/iptv-player/internal/m3u"
)

// Customization is the user-owned state carried per channel.
type Customization struct {
	Hidden          bool `json:"hidden,omitempty"`
	SortOrder       int  `json:"sortOrder,omitempty"`
	LastSourceIndex int  `json:"lastSourceIndex,omitempty"`
}

// blob is the on-disk document.
type blob struct {
	Channels map[string]Customization `json:"channels"`
}

// Store reads and writes the settings blob.
type Store struct {
	log  logrus.FieldLogger
	path string

	mu   sync.Mutex
	data blob
}

// NewStore creates a settings store backed by path. Nothing is read until
// Load.
func NewStore(log logrus.FieldLogger, path string) *Store {
	return &Store{
		log:  log.WithField("component", "settings"),
		path: path,
		data: blob{Channels: make(map[string]Customization)},
	}
}

// Load reads the blob from disk. A missing file is not an error: the store
// starts empty and the file appears on first Save.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to read settings: %w", err)
	}

	var data blob
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}

	if data.Channels == nil {
		data.Channels = make(map[string]Customization)
	}

	s.data = data

	return nil
}

// Save writes the blob to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	return nil
}

// Apply copies saved customization onto freshly parsed channels. A saved
// LastSourceIndex outside the channel's current source range falls back
// to 0.
func (s *Store) Apply(channels []*m3u.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0

	for _, ch := range channels {
		custom, ok := s.data.Channels[ch.Key()]
		if !ok {
			continue
		}

		ch.Hidden = custom.Hidden
		ch.SortOrder = custom.SortOrder

		if custom.LastSourceIndex >= 0 && custom.LastSourceIndex < len(ch.Sources) {
			ch.CurrentSourceIndex = custom.LastSourceIndex
		}

		applied++
	}

	if applied > 0 {
		s.log.WithField("channels", applied).Debug("Applied saved channel customization")
	}
}

// Update records a channel's current customization and persists the blob.
func (s *Store) Update(ch *m3u.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Channels[ch.Key()] = Customization{
		Hidden:          ch.Hidden,
		SortOrder:       ch.SortOrder,
		LastSourceIndex: ch.CurrentSourceIndex,
	}

	return s.saveLocked()
}
