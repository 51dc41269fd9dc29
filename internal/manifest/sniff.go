package manifest

import (
	"io/fs"
	"path/filepath"
	"strings"
)

var helpResources = map[string]bool{"tn": true, "tq": true, "tw": true, "ta": true}

// fieldsFromRepoName parses names such as "en_mat_text_ulb", "en_obs" or
// "fr_tn". Names without an underscore yield nothing.
func fieldsFromRepoName(repoName string) fields {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(repoName)), "_")
	if len(parts) < 2 {
		return fields{}
	}
	f := fields{Language: Language{ID: parts[0]}}
	second := parts[1]
	switch {
	case second == "obs":
		f.Project.ID = "obs"
		f.Resource.ID = "obs"
	case helpResources[second], second == "ulb", second == "udb":
		f.Resource.ID = second
	default:
		f.Project.ID = second
	}
	if len(parts) >= 3 {
		f.Type.ID = parts[2]
	}
	if len(parts) >= 4 {
		f.Resource.ID = parts[3]
	}
	return f
}

// sniffFormat infers the format from the most common known extension below
// root. Ties prefer usfm, then md, then txt.
func sniffFormat(root string) string {
	counts := map[string]int{}
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if p != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch name {
		case FileName, "project.json", "meta.json", "manifest.yaml", "LICENSE.md", "README.md":
			return nil
		}
		if f := NormalizeFormat(filepath.Ext(name)); f == FormatUSFM || f == FormatMarkdown || f == FormatText {
			counts[f]++
		}
		return nil
	})
	best, bestN := "", 0
	for _, f := range []string{FormatUSFM, FormatMarkdown, FormatText} {
		if counts[f] > bestN {
			best, bestN = f, counts[f]
		}
	}
	return best
}

// refineTextFormat maps plain-text chunk repositories onto the format their
// content actually carries: tS stores USFM and markdown chunks as .txt files.
func refineTextFormat(m *Manifest) {
	if m.Format != FormatText {
		return
	}
	switch {
	case IsBook(m.Project.ID):
		m.Format = FormatUSFM
	case m.Project.ID == "obs", m.Resource.ID == "obs", helpResources[m.Resource.ID]:
		m.Format = FormatMarkdown
	}
}
