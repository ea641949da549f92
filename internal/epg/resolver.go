package epg

import "strings"

// Strategy names the cascade step that resolved a channel identity.
type Strategy string

// Resolution strategies, in precedence order.
const (
	StrategyDeclaredID       Strategy = "declared-id"
	StrategyDeclaredIDAlias  Strategy = "declared-id-alias"
	StrategyDisplayNameAlias Strategy = "display-name-alias"
	StrategyDisplayNameID    Strategy = "display-name-id"
	StrategyAliasPrefix      Strategy = "alias-prefix"
	StrategyNormalized       Strategy = "normalized"
	StrategyNone             Strategy = "none"
)

// Resolve maps a playlist channel's declared identifier and display name to
// an XMLTV channel-id with guide data, or reports no match. Absence of a
// match is a normal "no EPG for this channel" outcome, not an error.
func (idx *Index) Resolve(declaredID, displayName string) (string, bool) {
	id, strategy, ok := idx.ResolveStrategy(declaredID, displayName)
	resolutionsTotal.WithLabelValues(string(strategy)).Inc()

	return id, ok
}

// ResolveStrategy is Resolve plus the cascade step that matched, for
// diagnostics. The cascade, first success wins:
//
//  1. declared id is a known channel-id
//  2. declared id is an alias of a known channel-id
//  3. display name is an alias of a known channel-id
//  4. display name is itself a known channel-id
//  5. some alias starts with the display name (case-insensitive)
//  6. normalized display name equals a normalized alias or channel-id
//
// Every step requires the candidate to own programme data; an alias pointing
// at a channel with no programmes never matches.
func (idx *Index) ResolveStrategy(declaredID, displayName string) (string, Strategy, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.resolveLocked(declaredID, displayName)
}

func (idx *Index) resolveLocked(declaredID, displayName string) (string, Strategy, bool) {
	if id, ok := idx.canonicalIDLocked(declaredID); ok {
		return id, StrategyDeclaredID, true
	}

	if id, ok := idx.aliasTargetIDLocked(declaredID); ok {
		return id, StrategyDeclaredIDAlias, true
	}

	if id, ok := idx.aliasTargetIDLocked(displayName); ok {
		return id, StrategyDisplayNameAlias, true
	}

	if id, ok := idx.canonicalIDLocked(displayName); ok {
		return id, StrategyDisplayNameID, true
	}

	if id, ok := idx.prefixMatchLocked(displayName); ok {
		return id, StrategyAliasPrefix, true
	}

	if id, ok := idx.normalizedMatchLocked(displayName); ok {
		return id, StrategyNormalized, true
	}

	return "", StrategyNone, false
}

// aliasTargetIDLocked follows an alias and confirms the target owns
// programme data.
func (idx *Index) aliasTargetIDLocked(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	target, ok := idx.aliases[strings.ToLower(name)]
	if !ok {
		return "", false
	}

	return idx.canonicalIDLocked(target)
}

// prefixMatchLocked scans the alias table in registration order for an alias
// that starts with the display name.
func (idx *Index) prefixMatchLocked(displayName string) (string, bool) {
	prefix := strings.ToLower(strings.TrimSpace(displayName))
	if prefix == "" {
		return "", false
	}

	for _, entry := range idx.aliasOrder {
		if !strings.HasPrefix(strings.ToLower(entry.Name), prefix) {
			continue
		}

		if id, ok := idx.canonicalIDLocked(entry.ChannelID); ok {
			return id, true
		}
	}

	return "", false
}

// normalizedMatchLocked compares separator-stripped lowercase forms,
// aliases before raw channel-ids.
func (idx *Index) normalizedMatchLocked(displayName string) (string, bool) {
	want := normalizeKey(displayName)
	if want == "" {
		return "", false
	}

	for _, entry := range idx.aliasOrder {
		if normalizeKey(entry.Name) != want {
			continue
		}

		if id, ok := idx.canonicalIDLocked(entry.ChannelID); ok {
			return id, true
		}
	}

	for _, key := range idx.channelOrder {
		guide := idx.channels[key]
		if normalizeKey(guide.id) == want {
			return guide.id, true
		}
	}

	return "", false
}

// normalizeKey lowercases and strips the separators that vary between
// playlist names and XMLTV identities: "-", " ", ".", "_".
func normalizeKey(s string) string {
	var sb strings.Builder

	sb.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		switch r {
		case '-', ' ', '.', '_':
			continue
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
