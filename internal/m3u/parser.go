package m3u

import (
	"strings"
)

const (
	headerPrefix = "#EXTM3U"
	extinfPrefix = "#EXTINF:"
	extgrpPrefix = "#EXTGRP:"
)

// headerEPGKeys lists the header attributes that can carry the playlist-level
// EPG feed URL, in precedence order.
var headerEPGKeys = []string{"tvg-url", "url-tvg", "x-tvg-url"}

// Parse extracts channels and EPG feed URLs from M3U playlist text.
//
// Entries sharing a name (case-insensitive) are merged into one channel with
// multiple sources; duplicate source URLs are suppressed. Channel ids are
// assigned 1-based in first-seen order. The returned EPG URLs contain the
// header-level URL (if any) followed by per-channel tvg-url overrides,
// deduplicated case-insensitively.
//
// Malformed lines are skipped, never fatal: an empty or headerless input
// yields an empty channel list.
func Parse(content string) ([]*Channel, []string) {
	lines := splitLines(content)

	headerURL := ""
	start := 0

	if len(lines) > 0 && hasPrefixFold(lines[0], headerPrefix) {
		headerURL = headerEPGURL(lines[0])
		start = 1
	}

	raw := scanChannels(lines[start:])
	channels := mergeChannels(raw)
	epgURLs := collectEPGURLs(headerURL, channels)

	return channels, epgURLs
}

// splitLines splits on newlines, trims each line (tolerating CR), and drops
// empty lines.
func splitLines(content string) []string {
	parts := strings.Split(content, "\n")
	lines := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			lines = append(lines, p)
		}
	}

	return lines
}

// headerEPGURL extracts the playlist-level EPG URL from the #EXTM3U header.
func headerEPGURL(header string) string {
	attrs := ExtractAttributes(header)

	for _, key := range headerEPGKeys {
		if v := attrs[key]; v != "" {
			return v
		}
	}

	return ""
}

// scanChannels walks the playlist body producing one raw channel per #EXTINF
// block. A block with no stream URL is dropped.
func scanChannels(lines []string) []*Channel {
	raw := make([]*Channel, 0, len(lines)/2)

	var current *Channel

	for _, line := range lines {
		switch {
		case hasPrefixFold(line, extinfPrefix):
			// A new #EXTINF before the previous block found its URL
			// abandons the previous zero-source block.
			current = parseExtinf(line[len(extinfPrefix):])
		case current == nil:
			continue
		case hasPrefixFold(line, extgrpPrefix):
			if current.Group == "" {
				current.Group = strings.TrimSpace(line[len(extgrpPrefix):])
			}
		case strings.HasPrefix(line, "#"):
			continue
		default:
			current.addSource(line)
			raw = append(raw, current)
			current = nil
		}
	}

	return raw
}

// parseExtinf builds a channel from the remainder of an #EXTINF line (the
// text after the 8-character prefix).
func parseExtinf(rest string) *Channel {
	attrs := ExtractAttributes(rest)
	ch := &Channel{}

	for key, value := range attrs {
		switch key {
		case "tvg-id":
			ch.TVGID = value
		case "tvg-name":
			ch.TVGName = value
		case "tvg-logo":
			ch.Logo = value
		case "group-title":
			ch.Group = value
		case "tvg-language":
			ch.Language = value
		case "tvg-country":
			ch.Country = value
		case "tvg-url":
			ch.TVGURL = value
		case "hidden":
			ch.Hidden = value == "true" || value == "1"
		default:
			if ch.ExtendedAttributes == nil {
				ch.ExtendedAttributes = make(map[string]string)
			}

			ch.ExtendedAttributes[key] = value
		}
	}

	// The display name is the text after the last comma, so attribute values
	// containing commas never truncate it. No comma at all falls back to
	// tvg-name.
	if idx := strings.LastIndex(rest, ","); idx >= 0 {
		ch.Name = strings.TrimSpace(rest[idx+1:])
	}

	if ch.Name == "" {
		ch.Name = ch.TVGName
	}

	return ch
}

// mergeChannels folds raw entries into merged channels keyed by
// case-insensitive name, preserving first-seen order so id assignment is
// deterministic. Later entries contribute extra sources and backfill unset
// metadata (first-wins, never overwritten).
func mergeChannels(raw []*Channel) []*Channel {
	byName := make(map[string]*Channel, len(raw))
	ordered := make([]*Channel, 0, len(raw))

	for _, entry := range raw {
		if len(entry.Sources) == 0 {
			continue
		}

		key := strings.ToLower(entry.Name)

		existing, ok := byName[key]
		if !ok {
			byName[key] = entry
			ordered = append(ordered, entry)

			continue
		}

		for _, src := range entry.Sources {
			existing.addSource(src.URL)
		}

		if existing.Logo == "" {
			existing.Logo = entry.Logo
		}

		if existing.Group == "" {
			existing.Group = entry.Group
		}

		if existing.TVGID == "" {
			existing.TVGID = entry.TVGID
		}

		if existing.TVGURL == "" {
			existing.TVGURL = entry.TVGURL
		}
	}

	for i, ch := range ordered {
		ch.ID = i + 1
	}

	return ordered
}

// collectEPGURLs gathers the header URL followed by per-channel overrides in
// first-seen order, deduplicated case-insensitively.
func collectEPGURLs(headerURL string, channels []*Channel) []string {
	seen := make(map[string]bool, len(channels)+1)
	urls := make([]string, 0, 4)

	add := func(u string) {
		if u == "" {
			return
		}

		key := strings.ToLower(u)
		if seen[key] {
			return
		}

		seen[key] = true
		urls = append(urls, u)
	}

	add(headerURL)

	for _, ch := range channels {
		add(ch.TVGURL)
	}

	return urls
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
