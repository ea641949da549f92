package m3u

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_ValidPlaylist(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-id="espn.us" tvg-name="ESPN" tvg-logo="http://logo.example.com/espn.png" group-title="US Sports",ESPN
http://stream.example.com/12345

#EXTINF:-1 tvg-id="hbo.us" tvg-name="HBO" tvg-logo="http://logo.example.com/hbo.png" group-title="US Movies",HBO
http://stream.example.com/12346
`
	channels, epgURLs := Parse(input)
	require.Len(t, channels, 2)
	require.Empty(t, epgURLs)

	require.Equal(t, 1, channels[0].ID)
	require.Equal(t, "ESPN", channels[0].Name)
	require.Equal(t, "espn.us", channels[0].TVGID)
	require.Equal(t, "ESPN", channels[0].TVGName)
	require.Equal(t, "http://logo.example.com/espn.png", channels[0].Logo)
	require.Equal(t, "US Sports", channels[0].Group)
	require.Len(t, channels[0].Sources, 1)
	require.Equal(t, "http://stream.example.com/12345", channels[0].Sources[0].URL)

	require.Equal(t, 2, channels[1].ID)
	require.Equal(t, "HBO", channels[1].Name)
	require.Equal(t, "http://stream.example.com/12346", channels[1].Sources[0].URL)
}

func TestParse_MergesDuplicateNames(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-id="espn.us" group-title="Sports",ESPN
http://stream.example.com/a
#EXTINF:-1,espn
http://stream.example.com/b
`
	channels, _ := Parse(input)
	require.Len(t, channels, 1)

	require.Equal(t, "ESPN", channels[0].Name)
	require.Len(t, channels[0].Sources, 2)
	require.Equal(t, "http://stream.example.com/a", channels[0].Sources[0].URL)
	require.Equal(t, "http://stream.example.com/b", channels[0].Sources[1].URL)
}

func TestParse_SuppressesDuplicateURLs(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1,ESPN
http://stream.example.com/a
#EXTINF:-1,ESPN
HTTP://STREAM.EXAMPLE.COM/A
`
	channels, _ := Parse(input)
	require.Len(t, channels, 1)
	require.Len(t, channels[0].Sources, 1)
	require.Equal(t, "http://stream.example.com/a", channels[0].Sources[0].URL)
}

func TestParse_BackfillsMetadataFirstWins(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-logo="http://logo.example.com/first.png",ESPN
http://stream.example.com/a
#EXTINF:-1 tvg-id="espn.us" tvg-logo="http://logo.example.com/second.png" group-title="Sports" tvg-url="http://epg.example.com/espn.xml",ESPN
http://stream.example.com/b
`
	channels, epgURLs := Parse(input)
	require.Len(t, channels, 1)

	// Logo was already set by the first entry and is never overwritten;
	// unset fields are backfilled from the second entry.
	require.Equal(t, "http://logo.example.com/first.png", channels[0].Logo)
	require.Equal(t, "espn.us", channels[0].TVGID)
	require.Equal(t, "Sports", channels[0].Group)
	require.Equal(t, "http://epg.example.com/espn.xml", channels[0].TVGURL)
	require.Equal(t, []string{"http://epg.example.com/espn.xml"}, epgURLs)
}

func TestParse_HeaderEPGURLPrecedence(t *testing.T) {
	input := `#EXTM3U tvg-url="http://epg.example.com/a.xml" url-tvg="http://epg.example.com/b.xml"
#EXTINF:-1,ESPN
http://stream.example.com/1
`
	_, epgURLs := Parse(input)
	require.Equal(t, []string{"http://epg.example.com/a.xml"}, epgURLs)
}

func TestParse_HeaderURLTvgFallback(t *testing.T) {
	input := `#EXTM3U url-tvg="http://epg.example.com/b.xml"
#EXTINF:-1,ESPN
http://stream.example.com/1
`
	_, epgURLs := Parse(input)
	require.Equal(t, []string{"http://epg.example.com/b.xml"}, epgURLs)
}

func TestParse_EPGURLsDeduplicated(t *testing.T) {
	input := `#EXTM3U tvg-url="http://epg.example.com/guide.xml"
#EXTINF:-1 tvg-url="HTTP://EPG.EXAMPLE.COM/GUIDE.XML",ESPN
http://stream.example.com/1
#EXTINF:-1 tvg-url="http://epg.example.com/other.xml",HBO
http://stream.example.com/2
`
	_, epgURLs := Parse(input)
	require.Equal(t, []string{
		"http://epg.example.com/guide.xml",
		"http://epg.example.com/other.xml",
	}, epgURLs)
}

func TestParse_NameFallbackToTVGName(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-name="Foo",
http://stream.example.com/1
`
	channels, _ := Parse(input)
	require.Len(t, channels, 1)
	require.Equal(t, "Foo", channels[0].Name)
}

func TestParse_NameAfterLastComma(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-name="Short, Name",This Is The Full Channel Name
http://stream.example.com/1
`
	channels, _ := Parse(input)
	require.Len(t, channels, 1)
	require.Equal(t, "This Is The Full Channel Name", channels[0].Name)
}

func TestParse_ExtGrp(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1,ESPN
#EXTGRP:Sports
http://stream.example.com/1
#EXTINF:-1 group-title="Movies",HBO
#EXTGRP:Ignored
http://stream.example.com/2
`
	channels, _ := Parse(input)
	require.Len(t, channels, 2)

	require.Equal(t, "Sports", channels[0].Group)
	// group-title already set the group, #EXTGRP does not overwrite it.
	require.Equal(t, "Movies", channels[1].Group)
}

func TestParse_ExtendedAttributes(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-id="espn.us" tvg-shift="-2" catchup="default",ESPN
http://stream.example.com/1
`
	channels, _ := Parse(input)
	require.Len(t, channels, 1)

	require.Equal(t, "espn.us", channels[0].TVGID)
	require.Equal(t, "-2", channels[0].ExtendedAttributes["tvg-shift"])
	require.Equal(t, "default", channels[0].ExtendedAttributes["catchup"])
}

func TestParse_HiddenAttribute(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 hidden="true",ESPN
http://stream.example.com/1
#EXTINF:-1 hidden="1",HBO
http://stream.example.com/2
#EXTINF:-1 hidden="no",CNN
http://stream.example.com/3
`
	channels, _ := Parse(input)
	require.Len(t, channels, 3)

	require.True(t, channels[0].Hidden)
	require.True(t, channels[1].Hidden)
	require.False(t, channels[2].Hidden)
}

func TestParse_DropsChannelWithoutURL(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1,Orphaned
#EXTINF:-1,ESPN
http://stream.example.com/1
#EXTINF:-1,Trailing
`
	channels, _ := Parse(input)
	require.Len(t, channels, 1)
	require.Equal(t, "ESPN", channels[0].Name)
}

func TestParse_CRLFAndBlankLines(t *testing.T) {
	input := "#EXTM3U\r\n\r\n#EXTINF:-1,ESPN\r\nhttp://stream.example.com/1\r\n"

	channels, _ := Parse(input)
	require.Len(t, channels, 1)
	require.Equal(t, "ESPN", channels[0].Name)
	require.Equal(t, "http://stream.example.com/1", channels[0].Sources[0].URL)
}

func TestParse_EmptyInput(t *testing.T) {
	channels, epgURLs := Parse("")
	require.Empty(t, channels)
	require.Empty(t, epgURLs)
}

func TestParse_HeaderlessInput(t *testing.T) {
	input := `#EXTINF:-1,ESPN
http://stream.example.com/1
`
	channels, _ := Parse(input)
	require.Len(t, channels, 1)
}

func TestChannel_NextSourceWraps(t *testing.T) {
	ch := &Channel{
		Name: "ESPN",
		Sources: []Source{
			{URL: "http://stream.example.com/a"},
			{URL: "http://stream.example.com/b"},
			{URL: "http://stream.example.com/c"},
		},
	}

	require.Equal(t, "http://stream.example.com/a", ch.CurrentSource().URL)
	require.Equal(t, "http://stream.example.com/b", ch.NextSource().URL)
	require.Equal(t, "http://stream.example.com/c", ch.NextSource().URL)
	require.Equal(t, "http://stream.example.com/a", ch.NextSource().URL)
}

func TestChannel_Key(t *testing.T) {
	ch := &Channel{
		Name:    "ESPN",
		Sources: []Source{{URL: "http://stream.example.com/a"}},
	}

	require.Equal(t, "ESPN|http://stream.example.com/a", ch.Key())
}
