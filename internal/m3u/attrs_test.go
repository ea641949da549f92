package m3u

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractAttributes_Basic(t *testing.T) {
	attrs := ExtractAttributes(`-1 tvg-id="espn.us" tvg-name="ESPN" group-title="US Sports",ESPN`)

	require.Equal(t, "espn.us", attrs["tvg-id"])
	require.Equal(t, "ESPN", attrs["tvg-name"])
	require.Equal(t, "US Sports", attrs["group-title"])
}

func TestExtractAttributes_KeysLowercased(t *testing.T) {
	attrs := ExtractAttributes(`TVG-ID="abc" Tvg-Name="def"`)

	require.Equal(t, "abc", attrs["tvg-id"])
	require.Equal(t, "def", attrs["tvg-name"])
}

func TestExtractAttributes_LaterDuplicateWins(t *testing.T) {
	attrs := ExtractAttributes(`tvg-id="first" tvg-id="second"`)

	require.Equal(t, "second", attrs["tvg-id"])
}

func TestExtractAttributes_EmptyValue(t *testing.T) {
	attrs := ExtractAttributes(`tvg-id="" tvg-name="CNN"`)

	v, ok := attrs["tvg-id"]
	require.True(t, ok)
	require.Empty(t, v)
	require.Equal(t, "CNN", attrs["tvg-name"])
}

func TestExtractAttributes_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "no attributes", input: "-1,Some Channel", expected: 0},
		{name: "unterminated quote", input: `tvg-id="open`, expected: 0},
		{name: "one good one bad", input: `tvg-id="ok" tvg-name="broken`, expected: 1},
		{name: "empty input", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, ExtractAttributes(tt.input), tt.expected)
		})
	}
}
