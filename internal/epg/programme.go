// Package epg provides the in-memory guide index, XMLTV feed ingestion, and
// channel identity resolution.
package epg

import "time"

// Programme is one guide entry, immutable after ingestion.
type Programme struct {
	// ChannelID is the XMLTV-side channel identity, not the playlist tvg-id.
	ChannelID   string    `json:"channelId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
}

// IsCurrentAt reports whether the programme is airing at the given instant.
func (p Programme) IsCurrentAt(now time.Time) bool {
	return !now.Before(p.Start) && now.Before(p.Stop)
}

// IsFutureAt reports whether the programme starts after the given instant.
func (p Programme) IsFutureAt(now time.Time) bool {
	return p.Start.After(now)
}

// ProgressAt returns how far through its slot the programme is at the given
// instant, clamped to [0, 1]. A programme with a non-positive slot reports 0.
func (p Programme) ProgressAt(now time.Time) float64 {
	total := p.Stop.Sub(p.Start)
	if total <= 0 {
		return 0
	}

	progress := float64(now.Sub(p.Start)) / float64(total)
	if progress < 0 {
		return 0
	}

	if progress > 1 {
		return 1
	}

	return progress
}
