package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/txbridge/internal/markdown"
)

// tsHelpStrategy merges tS help chunks (translation notes, questions) into
// one page per chapter. Chunk headings move one level down so the chapter
// heading stays the only level-one title.
type tsHelpStrategy struct {
	Binding
}

func newTSHelpStrategy(b Binding) Strategy { return &tsHelpStrategy{Binding: b} }

func (s *tsHelpStrategy) Name() string { return "ts-help" }

func (s *tsHelpStrategy) Run(ctx context.Context) (Result, error) {
	out, err := newOutput(s.OutDir)
	if err != nil {
		return Result{}, err
	}
	for _, ch := range numberedEntries(s.InDir, true) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		dir := filepath.Join(s.InDir, ch.Name)
		title := readText(filepath.Join(dir, "title.txt"))
		if title == "" {
			title = fmt.Sprintf("Chapter %d", ch.Number)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n", title)
		chunks := 0
		for _, chunk := range numberedEntries(dir, false) {
			text := readText(filepath.Join(dir, chunk.Name))
			if text == "" {
				out.warn("%s/%s: empty chunk skipped", ch.Name, chunk.Name)
				continue
			}
			b.WriteString("\n")
			b.Write(markdown.DemoteHeadings([]byte(text)))
			b.WriteString("\n")
			chunks++
		}
		if chunks == 0 {
			out.warn("%s: chapter has no chunks", ch.Name)
			continue
		}
		if err := out.writeMarkdown(pad2(ch.Number)+".md", []byte(b.String())); err != nil {
			return Result{}, err
		}
	}
	return out.result(), nil
}
