package xmltv

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type captureSink struct {
	channels   map[string][]string
	order      []string
	programmes []Programme
}

func newCaptureSink() *captureSink {
	return &captureSink{channels: make(map[string][]string)}
}

func (s *captureSink) Channel(id string, displayNames []string) {
	s.channels[id] = displayNames
	s.order = append(s.order, id)
}

func (s *captureSink) Programme(p Programme) {
	s.programmes = append(s.programmes, p)
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="espn.us">
    <display-name>ESPN</display-name>
    <display-name>ESPN HD</display-name>
    <icon src="http://logo.example.com/espn.png"/>
  </channel>
  <channel id="hbo.us">
    <display-name>HBO</display-name>
  </channel>
  <programme channel="espn.us" start="20260104120000 +0000" stop="20260104130000 +0000">
    <title lang="en">SportsCenter</title>
    <desc>Latest sports news and highlights</desc>
    <category>Sports</category>
  </programme>
  <programme channel="espn.us" start="20260104130000 +0000" stop="20260104140000 +0000">
    <title>NFL Live</title>
  </programme>
</tv>`

func TestDecode_ChannelsAndProgrammes(t *testing.T) {
	sink := newCaptureSink()

	err := Decode(strings.NewReader(sampleDocument), sink)
	require.NoError(t, err)

	require.Equal(t, []string{"espn.us", "hbo.us"}, sink.order)
	require.Equal(t, []string{"ESPN", "ESPN HD"}, sink.channels["espn.us"])
	require.Equal(t, []string{"HBO"}, sink.channels["hbo.us"])

	require.Len(t, sink.programmes, 2)
	require.Equal(t, "espn.us", sink.programmes[0].Channel)
	require.Equal(t, "20260104120000 +0000", sink.programmes[0].Start)
	require.Equal(t, "20260104130000 +0000", sink.programmes[0].Stop)
	require.Equal(t, "SportsCenter", sink.programmes[0].Title)
	require.Equal(t, "Latest sports news and highlights", sink.programmes[0].Desc)
	require.Equal(t, "Sports", sink.programmes[0].Category)

	require.Equal(t, "NFL Live", sink.programmes[1].Title)
	require.Empty(t, sink.programmes[1].Desc)
}

func TestDecode_BoundedSubtreeScan(t *testing.T) {
	// The display-name of the second channel must not leak into the first
	// channel's subtree scan.
	input := `<tv>
  <channel id="a"><display-name>Alpha</display-name></channel>
  <channel id="b"><display-name>Beta</display-name></channel>
</tv>`

	sink := newCaptureSink()

	err := Decode(strings.NewReader(input), sink)
	require.NoError(t, err)

	require.Equal(t, []string{"Alpha"}, sink.channels["a"])
	require.Equal(t, []string{"Beta"}, sink.channels["b"])
}

func TestDecode_SkipsBlankDisplayNames(t *testing.T) {
	input := `<tv><channel id="a"><display-name>  </display-name><display-name>Alpha</display-name></channel></tv>`

	sink := newCaptureSink()

	err := Decode(strings.NewReader(input), sink)
	require.NoError(t, err)
	require.Equal(t, []string{"Alpha"}, sink.channels["a"])
}

func TestDecode_GzipAutoDetect(t *testing.T) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sampleDocument))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	// The reader sees only raw bytes; detection is by the 1F 8B magic, not
	// by any file extension.
	sink := newCaptureSink()

	err = Decode(bytes.NewReader(buf.Bytes()), sink)
	require.NoError(t, err)
	require.Len(t, sink.programmes, 2)
}

func TestDecode_NonUTF8Charset(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="ISO-8859-1"?><tv><channel id="tf1.fr"><display-name>T`)
	doc = append(doc, 0xE9) // "é" in ISO-8859-1
	doc = append(doc, []byte(`l`)...)
	doc = append(doc, []byte(`</display-name></channel></tv>`)...)

	sink := newCaptureSink()

	err := Decode(bytes.NewReader(doc), sink)
	require.NoError(t, err)
	require.Equal(t, []string{"Tél"}, sink.channels["tf1.fr"])
}

func TestDecode_MalformedXML(t *testing.T) {
	sink := newCaptureSink()

	err := Decode(strings.NewReader("<tv><channel id="), sink)
	require.Error(t, err)
}

func TestNewDocumentReader_TruncatedGzip(t *testing.T) {
	_, err := NewDocumentReader(bytes.NewReader([]byte{0x1f, 0x8b}))
	require.Error(t, err)
}
