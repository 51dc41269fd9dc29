// Package frontmatter separates YAML front matter from markdown content.
package frontmatter

import (
	"bytes"
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document opened a front matter
// block but never closed it.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Document is a markdown file split into its parts.
type Document struct {
	// Raw is the front matter without delimiters; empty when absent.
	Raw []byte
	// Body is the markdown after the closing delimiter.
	Body []byte
	// Had reports whether a front matter block was present.
	Had bool
}

// Split separates `---` delimited YAML front matter from the body. CRLF
// documents are handled. A document without front matter is returned whole.
func Split(content []byte) (Document, error) {
	nl := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = "\r\n"
	}
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return Document{Body: content}, nil
	}

	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return Document{Raw: []byte{}, Body: rest[len(open):], Had: true}, nil
	}
	closeSeq := []byte(nl + "---")
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		return Document{}, ErrMissingClosingDelimiter
	}
	body := rest[idx+len(closeSeq):]
	body = bytes.TrimPrefix(body, []byte(nl))
	return Document{Raw: rest[:idx+len(nl)], Body: body, Had: true}, nil
}

// Fields parses the front matter into a map. Absent front matter yields an empty map.
func (d Document) Fields() (map[string]any, error) {
	out := map[string]any{}
	if len(d.Raw) == 0 {
		return out, nil
	}
	if err := yaml.Unmarshal(d.Raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Title returns the "title" front matter value, or "".
func (d Document) Title() string {
	fields, err := d.Fields()
	if err != nil {
		return ""
	}
	s, _ := fields["title"].(string)
	return strings.TrimSpace(s)
}
