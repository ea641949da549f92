// Package player defines the playback engine contract. The serving layer
// drives an Engine without knowing what renders the stream; the bundled
// LogEngine is a stand-in that records state transitions, useful headless
// and in tests.
package player

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// EventKind identifies a playback state transition.
type EventKind string

// Playback event kinds.
const (
	EventPlaying   EventKind = "playing"
	EventPaused    EventKind = "paused"
	EventStopped   EventKind = "stopped"
	EventBuffering EventKind = "buffering"
	EventError     EventKind = "error"
)

// Event is a playback state notification.
type Event struct {
	Kind    EventKind `json:"kind"`
	URL     string    `json:"url,omitempty"`
	Percent int       `json:"percent,omitempty"` // buffering progress
	Err     string    `json:"error,omitempty"`
}

// Engine is a playback backend. Implementations must be safe for
// concurrent use; Events delivery must not block playback control.
type Engine interface {
	// Play starts (or switches to) the given stream URL.
	Play(url string) error
	// Pause pauses the current stream. Pausing while stopped is an error.
	Pause() error
	// Stop stops playback. Stopping while already stopped is a no-op.
	Stop() error
	// Events returns the engine's event stream.
	Events() <-chan Event
}

const eventBuffer = 16

// LogEngine is an Engine that performs no real playback: it tracks state,
// logs transitions, and emits events. Events are dropped rather than
// blocking when the consumer falls behind.
type LogEngine struct {
	log    logrus.FieldLogger
	events chan Event

	mu      sync.Mutex
	url     string
	playing bool
	paused  bool
}

// NewLogEngine creates a logging playback engine.
func NewLogEngine(log logrus.FieldLogger) *LogEngine {
	return &LogEngine{
		log:    log.WithField("component", "player"),
		events: make(chan Event, eventBuffer),
	}
}

// Play starts playback of the given URL, replacing any current stream.
func (e *LogEngine) Play(url string) error {
	if url == "" {
		return fmt.Errorf("empty stream url")
	}

	e.mu.Lock()
	e.url = url
	e.playing = true
	e.paused = false
	e.mu.Unlock()

	e.log.WithField("url", url).Info("Playing stream")
	e.emit(Event{Kind: EventPlaying, URL: url})

	return nil
}

// Pause pauses the current stream.
func (e *LogEngine) Pause() error {
	e.mu.Lock()

	if !e.playing {
		e.mu.Unlock()

		return fmt.Errorf("nothing playing")
	}

	e.paused = true
	url := e.url
	e.mu.Unlock()

	e.log.WithField("url", url).Info("Paused stream")
	e.emit(Event{Kind: EventPaused, URL: url})

	return nil
}

// Stop stops playback.
func (e *LogEngine) Stop() error {
	e.mu.Lock()

	if !e.playing {
		e.mu.Unlock()

		return nil
	}

	url := e.url
	e.url = ""
	e.playing = false
	e.paused = false
	e.mu.Unlock()

	e.log.WithField("url", url).Info("Stopped stream")
	e.emit(Event{Kind: EventStopped, URL: url})

	return nil
}

// Events returns the engine's event stream.
func (e *LogEngine) Events() <-chan Event {
	return e.events
}

// Current returns the URL being played and whether playback is paused.
func (e *LogEngine) Current() (url string, paused bool, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.url, e.paused, e.playing
}

func (e *LogEngine) emit(event Event) {
	select {
	case e.events <- event:
	default:
		e.log.WithField("kind", event.Kind).Debug("Dropped playback event")
	}
}
