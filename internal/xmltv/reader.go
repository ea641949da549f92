package xmltv

import (
	"bufio"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Programme is the raw content of one <programme> element. Timestamps are
// unparsed attribute text; see ParseTime.
type Programme struct {
	Channel  string
	Start    string
	Stop     string
	Title    string
	Desc     string
	Category string
}

// Sink receives channels and programmes as Decode streams them out of a
// document.
type Sink interface {
	// Channel is called once per <channel> element with its id attribute and
	// every <display-name> text found in the element's subtree.
	Channel(id string, displayNames []string)
	// Programme is called once per <programme> element.
	Programme(p Programme)
}

// NewDocumentReader wraps r, transparently decompressing gzip input detected
// by the 1F 8B magic bytes. Plain input passes through unchanged.
func NewDocumentReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(2)
	if err != nil {
		// Too short to carry the magic bytes; let the XML decoder report it.
		return br, nil //nolint:nilerr // short input is not a transport error
	}

	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}

		return gz, nil
	}

	return br, nil
}

// Decode stream-parses an XMLTV document, feeding every channel and
// programme element to the sink. The document is never materialized as a
// whole: each element is consumed with a bounded sub-scan that stops at the
// element's closing tag, so multi-megabyte guides stay cheap.
//
// Gzip-compressed input is detected and decompressed automatically.
func Decode(r io.Reader, sink Sink) error {
	body, err := NewDocumentReader(r)
	if err != nil {
		return err
	}

	decoder := xml.NewDecoder(body)
	decoder.CharsetReader = charset.NewReaderLabel

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to read XML token: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "channel":
			id, names, err := decodeChannel(decoder, start)
			if err != nil {
				return err
			}

			sink.Channel(id, names)
		case "programme":
			p, err := decodeProgramme(decoder, start)
			if err != nil {
				return err
			}

			sink.Programme(p)
		}
	}
}

// decodeChannel consumes one <channel> subtree, collecting the id attribute
// and all display-name texts.
func decodeChannel(decoder *xml.Decoder, start xml.StartElement) (string, []string, error) {
	id := attr(start, "id")

	var names []string

	err := scanSubtree(decoder, func(child xml.StartElement) error {
		text, err := elementText(decoder)
		if err != nil {
			return err
		}

		if child.Name.Local == "display-name" {
			if name := strings.TrimSpace(text); name != "" {
				names = append(names, name)
			}
		}

		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return id, names, nil
}

// decodeProgramme consumes one <programme> subtree.
func decodeProgramme(decoder *xml.Decoder, start xml.StartElement) (Programme, error) {
	p := Programme{
		Channel: attr(start, "channel"),
		Start:   attr(start, "start"),
		Stop:    attr(start, "stop"),
	}

	err := scanSubtree(decoder, func(child xml.StartElement) error {
		text, err := elementText(decoder)
		if err != nil {
			return err
		}

		text = strings.TrimSpace(text)

		switch child.Name.Local {
		case "title":
			if p.Title == "" {
				p.Title = text
			}
		case "desc":
			if p.Desc == "" {
				p.Desc = text
			}
		case "category":
			if p.Category == "" {
				p.Category = text
			}
		}

		return nil
	})
	if err != nil {
		return Programme{}, err
	}

	return p, nil
}

// attr returns a start element's attribute value by local name.
func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}

	return ""
}

// scanSubtree walks the children of the element the decoder is currently
// inside, invoking visit for each direct child start element. visit must
// consume the child element entirely (elementText does). The scan stops at
// the enclosing element's end tag, never reading into siblings.
func scanSubtree(decoder *xml.Decoder, visit func(child xml.StartElement) error) error {
	for {
		token, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("failed to read XML token: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if err := visit(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// elementText consumes the current element to its end tag and returns the
// concatenated character data, including text inside nested elements.
func elementText(decoder *xml.Decoder) (string, error) {
	var sb strings.Builder

	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return "", fmt.Errorf("failed to read XML token: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}

	return sb.String(), nil
}
