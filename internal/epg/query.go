package epg

import (
	"strings"
	"time"
)

// CurrentProgramme returns the programme airing now on the resolved channel,
// if any.
func (idx *Index) CurrentProgramme(declaredID, displayName string) (Programme, bool) {
	return idx.CurrentProgrammeAt(declaredID, displayName, time.Now())
}

// CurrentProgrammeAt returns the first programme with start ≤ now < stop on
// the resolved channel.
func (idx *Index) CurrentProgrammeAt(declaredID, displayName string, now time.Time) (Programme, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	guide, ok := idx.resolveGuideLocked(declaredID, displayName)
	if !ok {
		return Programme{}, false
	}

	for _, p := range guide.programmes {
		if p.IsCurrentAt(now) {
			return p, true
		}
	}

	return Programme{}, false
}

// UpcomingProgrammes returns up to count programmes starting after now on
// the resolved channel, in start order.
func (idx *Index) UpcomingProgrammes(declaredID, displayName string, count int) []Programme {
	return idx.UpcomingProgrammesAt(declaredID, displayName, time.Now(), count)
}

// UpcomingProgrammesAt returns up to count programmes with start > now.
func (idx *Index) UpcomingProgrammesAt(declaredID, displayName string, now time.Time, count int) []Programme {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	guide, ok := idx.resolveGuideLocked(declaredID, displayName)
	if !ok || count <= 0 {
		return nil
	}

	upcoming := make([]Programme, 0, count)

	for _, p := range guide.programmes {
		if !p.IsFutureAt(now) {
			continue
		}

		upcoming = append(upcoming, p)
		if len(upcoming) == count {
			break
		}
	}

	return upcoming
}

// resolveGuideLocked runs the resolver cascade and returns the matched
// channel's guide.
func (idx *Index) resolveGuideLocked(declaredID, displayName string) (*channelGuide, bool) {
	id, _, ok := idx.resolveLocked(declaredID, displayName)
	if !ok {
		return nil, false
	}

	guide, ok := idx.channels[strings.ToLower(id)]

	return guide, ok
}
