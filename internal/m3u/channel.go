// Package m3u provides parsing and channel modelling for M3U/M3U8 playlists.
package m3u

import "strings"

// Source is one physical stream endpoint owned by a channel.
type Source struct {
	URL     string `json:"url"`
	Quality string `json:"quality,omitempty"`
	// IsWorking is reserved for future source health tracking.
	IsWorking bool `json:"isWorking,omitempty"`
}

// Channel is a logical channel merged from one or more playlist entries
// sharing the same name (case-insensitive). A channel that survives parsing
// always has at least one source.
type Channel struct {
	ID                 int               `json:"id"`
	Name               string            `json:"name"`
	Sources            []Source          `json:"sources"`
	CurrentSourceIndex int               `json:"currentSourceIndex"`
	Logo               string            `json:"logo,omitempty"`
	Group              string            `json:"group,omitempty"`
	TVGID              string            `json:"tvgId,omitempty"`
	TVGName            string            `json:"tvgName,omitempty"`
	Language           string            `json:"language,omitempty"`
	Country            string            `json:"country,omitempty"`
	TVGURL             string            `json:"tvgUrl,omitempty"`
	ExtendedAttributes map[string]string `json:"extendedAttributes,omitempty"`

	// User customization, owned by the surrounding application.
	Hidden    bool `json:"hidden,omitempty"`
	SortOrder int  `json:"sortOrder,omitempty"`
}

// CurrentSource returns the currently selected source.
func (c *Channel) CurrentSource() Source {
	if len(c.Sources) == 0 {
		return Source{}
	}

	return c.Sources[c.CurrentSourceIndex%len(c.Sources)]
}

// NextSource advances the selection cursor, wrapping around, and returns the
// newly selected source.
func (c *Channel) NextSource() Source {
	if len(c.Sources) == 0 {
		return Source{}
	}

	c.CurrentSourceIndex = (c.CurrentSourceIndex + 1) % len(c.Sources)

	return c.Sources[c.CurrentSourceIndex]
}

// Key identifies a channel across playlist reloads for customization
// persistence: name joined with the first source URL.
func (c *Channel) Key() string {
	first := ""
	if len(c.Sources) > 0 {
		first = c.Sources[0].URL
	}

	return c.Name + "|" + first
}

// addSource appends a source URL unless the channel already carries it
// (case-insensitive). Reports whether the source was added.
func (c *Channel) addSource(url string) bool {
	for _, s := range c.Sources {
		if strings.EqualFold(s.URL, url) {
			return false
		}
	}

	c.Sources = append(c.Sources, Source{URL: url})

	return true
}
