package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/txbridge/internal/manifest"
)

// tsUSFMStrategy stitches a translationStudio text project (one directory
// per chapter, one file per chunk) into a single USFM book.
type tsUSFMStrategy struct {
	Binding
}

func newTSUSFMStrategy(b Binding) Strategy { return &tsUSFMStrategy{Binding: b} }

func (s *tsUSFMStrategy) Name() string { return "ts-usfm" }

func (s *tsUSFMStrategy) Run(ctx context.Context) (Result, error) {
	out, err := newOutput(s.OutDir)
	if err != nil {
		return Result{}, err
	}

	projectID := ""
	var projectName, langName string
	if s.Manifest != nil {
		projectID = s.Manifest.ProjectID()
		projectName = s.Manifest.Project.Name
		langName = s.Manifest.TargetLanguage.Name
	}
	book, known := manifest.LookupBook(projectID)
	fileName := book.FileName()
	if !known {
		code := strings.ToUpper(projectID)
		if code == "" {
			code = "BOOK"
		}
		book = manifest.Book{Code: strings.ToLower(code), Name: projectName, Number: "00"}
		fileName = "00-" + code + ".usfm"
		out.warn("project %q is not a known book", projectID)
	}

	title := readText(filepath.Join(s.InDir, "front", "title.txt"))
	if title == "" {
		title = projectName
	}
	if title == "" {
		title = book.Name
	}

	var b strings.Builder
	code := strings.ToUpper(book.Code)
	fmt.Fprintf(&b, "\\id %s %s\n", code, strings.TrimSpace(langName+" "+title))
	b.WriteString("\\ide UTF-8\n")
	fmt.Fprintf(&b, "\\h %s\n", title)
	fmt.Fprintf(&b, "\\toc1 %s\n", title)
	fmt.Fprintf(&b, "\\toc2 %s\n", title)
	fmt.Fprintf(&b, "\\toc3 %s\n", strings.ToLower(code))
	fmt.Fprintf(&b, "\\mt %s\n", title)

	chapters := numberedEntries(s.InDir, true)
	if len(chapters) == 0 {
		out.warn("no chapter directories found")
	}
	for _, ch := range chapters {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		dir := filepath.Join(s.InDir, ch.Name)
		var chapter strings.Builder
		for _, chunk := range numberedEntries(dir, false) {
			text := readText(filepath.Join(dir, chunk.Name))
			if text == "" {
				out.warn("%s/%s: empty chunk skipped", ch.Name, chunk.Name)
				continue
			}
			chapter.WriteString("\n\\s5\n")
			chapter.WriteString(text)
			chapter.WriteString("\n")
		}
		if chapter.Len() == 0 {
			out.warn("%s: chapter has no chunks", ch.Name)
			continue
		}
		body := chapter.String()
		if !strings.Contains(body, "\\c ") {
			fmt.Fprintf(&b, "\n\\c %d\n", ch.Number)
			if t := readText(filepath.Join(dir, "title.txt")); t != "" {
				fmt.Fprintf(&b, "\\cl %s\n", t)
			}
			b.WriteString("\\p\n")
		}
		b.WriteString(body)
	}

	if len(chapters) > 0 {
		if err := out.write(fileName, []byte(norm.NFC.String(b.String()))); err != nil {
			return Result{}, err
		}
	}
	return out.result(), nil
}
