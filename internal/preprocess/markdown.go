package preprocess

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/txbridge/internal/frontmatter"
	"git.home.luguber.info/inful/txbridge/internal/manifest"
	"git.home.luguber.info/inful/txbridge/internal/markdown"
)

// markdownStrategy copies a markdown tree, removing front matter and making
// sure every page starts with a title. Other files are copied unchanged.
type markdownStrategy struct {
	Binding
}

func newMarkdownStrategy(b Binding) Strategy { return &markdownStrategy{Binding: b} }

func (s *markdownStrategy) Name() string { return "markdown" }

func (s *markdownStrategy) Run(ctx context.Context) (Result, error) {
	out, err := newOutput(s.OutDir)
	if err != nil {
		return Result{}, err
	}
	for _, rel := range walkFiles(s.InDir) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		src := filepath.Join(s.InDir, filepath.FromSlash(rel))
		if manifest.NormalizeFormat(path.Ext(rel)) != manifest.FormatMarkdown {
			if err := out.copyFile(src, rel); err != nil {
				return Result{}, err
			}
			continue
		}
		data, err := os.ReadFile(src) // #nosec G304 -- repository file
		if err != nil {
			out.warn("skipped %s: %v", rel, err)
			continue
		}
		doc, err := frontmatter.Split(data)
		if err != nil {
			out.warn("%s: %v, front matter kept", rel, err)
			doc = frontmatter.Document{Body: data}
		}
		title := doc.Title()
		if title == "" {
			title = titleFromName(rel)
		}
		body := markdown.EnsureTitle(doc.Body, title)
		dest := strings.TrimSuffix(rel, path.Ext(rel)) + ".md"
		if err := out.writeMarkdown(dest, body); err != nil {
			return Result{}, err
		}
	}
	return out.result(), nil
}

// titleFromName turns "intro-to_obs.md" into "Intro To Obs". Purely numeric
// names (chapter files) get no synthesized title.
func titleFromName(rel string) string {
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	if strings.Trim(base, "0123456789") == "" {
		return ""
	}
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	return cases.Title(language.Und).String(strings.Join(words, " "))
}
