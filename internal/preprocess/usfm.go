package preprocess

import (
	"bufio"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/txbridge/internal/manifest"
)

// usfmStrategy collects USFM books, naming each NN-BOOK.usfm.
type usfmStrategy struct {
	Binding
}

func newUSFMStrategy(b Binding) Strategy { return &usfmStrategy{Binding: b} }

func (s *usfmStrategy) Name() string { return "usfm" }

func (s *usfmStrategy) Run(ctx context.Context) (Result, error) {
	out, err := newOutput(s.OutDir)
	if err != nil {
		return Result{}, err
	}

	var sources []string
	for _, rel := range walkFiles(s.InDir) {
		if manifest.NormalizeFormat(path.Ext(rel)) == manifest.FormatUSFM {
			sources = append(sources, rel)
		}
	}

	seen := map[string]string{}
	for _, rel := range sources {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		src := filepath.Join(s.InDir, filepath.FromSlash(rel))
		code := bookCode(src)
		if code == "" && len(sources) == 1 && s.Manifest != nil {
			code = s.Manifest.ProjectID()
		}
		name := strings.TrimSuffix(path.Base(rel), path.Ext(rel)) + ".usfm"
		if b, ok := manifest.LookupBook(code); ok {
			name = b.FileName()
		} else {
			out.warn("%s: book could not be identified, keeping file name", rel)
		}
		if prev, dup := seen[name]; dup {
			out.warn("%s: duplicate of %s, skipped", rel, prev)
			continue
		}
		seen[name] = rel
		if err := out.copyFile(src, name); err != nil {
			return Result{}, err
		}
	}
	return out.result(), nil
}

// bookCode reads the \id marker near the top of a USFM file.
func bookCode(path string) string {
	f, err := os.Open(path) // #nosec G304 -- repository file
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for i := 0; i < 20 && sc.Scan(); i++ {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if rest, ok := strings.CutPrefix(line, `\id `); ok {
			if fields := strings.Fields(rest); len(fields) > 0 {
				return strings.ToLower(fields[0])
			}
		}
	}
	return ""
}
