package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// OBSImageURL is the frame image location; arguments are language, chapter
// and frame, the latter two zero padded.
const OBSImageURL = "https://cdn.door43.org/obs/jpg/360px/obs-%s-%s-%s.jpg"

// tsOBSStrategy assembles Open Bible Stories chapters from tS frame files:
// NN/title.txt, NN/reference.txt and NN/MM.txt become NN.md.
type tsOBSStrategy struct {
	Binding
}

func newTSOBSStrategy(b Binding) Strategy { return &tsOBSStrategy{Binding: b} }

func (s *tsOBSStrategy) Name() string { return "ts-obs" }

func (s *tsOBSStrategy) Run(ctx context.Context) (Result, error) {
	out, err := newOutput(s.OutDir)
	if err != nil {
		return Result{}, err
	}
	lang := "en"
	if s.Manifest != nil && s.Manifest.TargetLanguage.ID != "" {
		lang = s.Manifest.TargetLanguage.ID
	}

	for _, ch := range numberedEntries(s.InDir, true) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		dir := filepath.Join(s.InDir, ch.Name)
		chapter := pad2(ch.Number)

		var b strings.Builder
		title := readText(filepath.Join(dir, "title.txt"))
		if title == "" {
			out.warn("%s: missing title.txt", ch.Name)
			title = fmt.Sprintf("Chapter %d", ch.Number)
		}
		fmt.Fprintf(&b, "# %s\n", title)

		frames := 0
		for _, fr := range numberedEntries(dir, false) {
			text := readText(filepath.Join(dir, fr.Name))
			if text == "" {
				out.warn("%s/%s: empty frame skipped", ch.Name, fr.Name)
				continue
			}
			fmt.Fprintf(&b, "\n![OBS Image](%s)\n\n%s\n", fmt.Sprintf(OBSImageURL, lang, chapter, pad2(fr.Number)), text)
			frames++
		}
		if frames == 0 {
			out.warn("%s: chapter has no frames", ch.Name)
			continue
		}
		if ref := readText(filepath.Join(dir, "reference.txt")); ref != "" {
			fmt.Fprintf(&b, "\n_%s_\n", ref)
		}
		if err := out.writeMarkdown(chapter+".md", []byte(b.String())); err != nil {
			return Result{}, err
		}
	}

	for _, extra := range []string{"front", "back"} {
		if text := readText(filepath.Join(s.InDir, extra, "title.txt")); text != "" {
			if err := out.writeMarkdown(extra+".md", []byte("# "+text+"\n")); err != nil {
				return Result{}, err
			}
		}
	}
	return out.result(), nil
}
