package m3u

import (
	"regexp"
	"strings"
)

// attrPattern matches key="value" pairs on a playlist line. Values may be
// empty but never contain a literal quote.
var attrPattern = regexp.MustCompile(`([A-Za-z0-9-]+)="([^"]*)"`)

// ExtractAttributes returns every key="value" pair found in a line fragment.
// Keys are lowercased; a later duplicate key overwrites an earlier one.
// Malformed fragments simply yield fewer pairs.
func ExtractAttributes(fragment string) map[string]string {
	matches := attrPattern.FindAllStringSubmatch(fragment, -1)
	attrs := make(map[string]string, len(matches))

	for _, m := range matches {
		attrs[strings.ToLower(m[1])] = m[2]
	}

	return attrs
}
