// Package markdown inspects and rewrites markdown headings without
// re-rendering the document. Edits are computed from the goldmark AST so
// code blocks and other literal content are never touched.
package markdown

import (
	"bytes"
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is an ATX heading found in a document.
type Heading struct {
	Level int
	Text  string
	// Offset is the byte position of the first '#' of the heading line.
	Offset int
}

// Parse parses a markdown body (front matter already removed).
func Parse(body []byte) gmast.Node {
	return goldmark.New().Parser().Parse(text.NewReader(body))
}

// Headings lists the ATX headings of body in document order.
func Headings(body []byte) []Heading {
	root := Parse(body)
	var out []Heading
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		if off, ok := atxMarkerOffset(body, h); ok {
			out = append(out, Heading{Level: h.Level, Text: headingText(body, h), Offset: off})
		}
		return gmast.WalkSkipChildren, nil
	})
	return out
}

// Title returns the text of the first level-one heading, if any.
func Title(body []byte) (string, bool) {
	for _, h := range Headings(body) {
		if h.Level == 1 {
			return h.Text, true
		}
	}
	return "", false
}

// EnsureTitle prepends "# title" when body has no level-one heading.
func EnsureTitle(body []byte, title string) []byte {
	if _, ok := Title(body); ok || title == "" {
		return body
	}
	out := make([]byte, 0, len(body)+len(title)+4)
	out = append(out, "# "...)
	out = append(out, title...)
	out = append(out, "\n\n"...)
	return append(out, bytes.TrimLeft(body, "\r\n")...)
}

// DemoteHeadings pushes every ATX heading one level down. Level-six
// headings stay at six.
func DemoteHeadings(body []byte) []byte {
	var offsets []int
	for _, h := range Headings(body) {
		if h.Level < 6 {
			offsets = append(offsets, h.Offset)
		}
	}
	return insertAt(body, offsets, '#')
}

// insertAt inserts b before each offset of src.
func insertAt(src []byte, offsets []int, b byte) []byte {
	if len(offsets) == 0 {
		return src
	}
	sort.Ints(offsets)
	out := make([]byte, 0, len(src)+len(offsets))
	prev := 0
	for _, off := range offsets {
		out = append(out, src[prev:off]...)
		out = append(out, b)
		prev = off
	}
	return append(out, src[prev:]...)
}

// atxMarkerOffset finds the '#' run that opens heading h. Setext headings
// (underlined) and empty headings report false.
func atxMarkerOffset(src []byte, h *gmast.Heading) (int, bool) {
	if h.Lines().Len() == 0 {
		return 0, false
	}
	start := h.Lines().At(0).Start
	lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
	i := lineStart
	for i < start && src[i] == ' ' {
		i++
	}
	if i < len(src) && src[i] == '#' {
		return i, true
	}
	return 0, false
}

func headingText(src []byte, h *gmast.Heading) string {
	var buf bytes.Buffer
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return string(bytes.TrimSpace(buf.Bytes()))
}
