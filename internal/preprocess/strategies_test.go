package preprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/manifest"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
}

func readOut(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func run(t *testing.T, s Strategy) Result {
	t.Helper()
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestCopyStrategy(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{
		"a.docx":      "doc",
		"sub/b.txt":   "b",
		".git/config": "x",
	})
	res := run(t, newCopyStrategy(Binding{InDir: in, OutDir: out}))
	assert.True(t, res.Success)
	assert.Equal(t, []string{"a.docx", "sub/b.txt"}, res.Files)
	assert.Equal(t, "b", readOut(t, out, "sub/b.txt"))
}

func TestCopyStrategy_EmptyInputIsNotSuccess(t *testing.T) {
	res := run(t, newCopyStrategy(Binding{InDir: t.TempDir(), OutDir: t.TempDir()}))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Warnings)
}

func TestUSFMStrategy_RenamesBooks(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{
		"matthew.usfm": "\\id MAT Unlocked Literal Bible\n\\c 1\n",
		"mark.SFM":     "\ufeff\\id MRK\n\\c 1\n",
		"notes.usfm":   "\\c 1\n",
		"README.md":    "readme",
	})
	res := run(t, newUSFMStrategy(Binding{Manifest: &manifest.Manifest{}, InDir: in, OutDir: out}))
	assert.Equal(t, []string{"41-MAT.usfm", "42-MRK.usfm", "notes.usfm"}, res.Files)
	assert.Len(t, res.Warnings, 1)
	assert.Contains(t, readOut(t, out, "41-MAT.usfm"), "\\id MAT")
}

func TestUSFMStrategy_SingleFileUsesProject(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{"book.usfm": "\\c 1\n\\v 1 Paul"})
	m := &manifest.Manifest{Project: manifest.IDName{ID: "tit"}}
	res := run(t, newUSFMStrategy(Binding{Manifest: m, InDir: in, OutDir: out}))
	assert.Equal(t, []string{"57-TIT.usfm"}, res.Files)
}

func TestTSUSFMStrategy_StitchesChapters(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{
		"front/title.txt": "Tito",
		"01/01.txt":       "\\v 1 Pablo, siervo de Dios",
		"01/05.txt":       "\\v 5 Por esta causa",
		"01/title.txt":    "Capítulo 1",
		"2/01.txt":        "\\c 2 \\v 1 Pero tú",
		"03/01.txt":       "",
		"manifest.json":   "{}",
	})
	m := &manifest.Manifest{
		Project:        manifest.IDName{ID: "tit", Name: "Titus"},
		TargetLanguage: manifest.Language{ID: "es", Name: "español"},
	}
	res := run(t, newTSUSFMStrategy(Binding{Manifest: m, InDir: in, OutDir: out}))
	require.Equal(t, []string{"57-TIT.usfm"}, res.Files)

	usfm := readOut(t, out, "57-TIT.usfm")
	assert.True(t, strings.HasPrefix(usfm, "\\id TIT español Tito\n\\ide UTF-8\n\\h Tito\n"))
	assert.Contains(t, usfm, "\\toc3 tit\n\\mt Tito\n")
	assert.Contains(t, usfm, "\\c 1\n\\cl Capítulo 1\n\\p\n\n\\s5\n\\v 1 Pablo")
	assert.Less(t, strings.Index(usfm, "\\v 1 Pablo"), strings.Index(usfm, "\\v 5 Por"))
	assert.Equal(t, 1, strings.Count(usfm, "\\c 2"), "existing chapter markers are not duplicated")
	assert.NotEmpty(t, res.Warnings, "empty chunk and chapter are reported")
}

func TestMarkdownStrategy(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{
		"01.md":           "---\ntitle: The Creation\n---\nLong ago...\n",
		"02.markdown":     "# Sin Enters the World\n\ntext\n",
		"intro-to_obs.md": "Welcome\n",
		"broken.md":       "---\ntitle: x\nno close\n",
		"jpg/01-01.jpg":   "img",
	})
	res := run(t, newMarkdownStrategy(Binding{InDir: in, OutDir: out}))
	assert.Equal(t, []string{"01.md", "02.md", "broken.md", "intro-to_obs.md", "jpg/01-01.jpg"}, res.Files)

	assert.Equal(t, "# The Creation\n\nLong ago...\n", readOut(t, out, "01.md"))
	assert.Equal(t, "# Sin Enters the World\n\ntext\n", readOut(t, out, "02.md"))
	assert.Equal(t, "# Intro To Obs\n\nWelcome\n", readOut(t, out, "intro-to_obs.md"))
	assert.Len(t, res.Warnings, 1)
	assert.Len(t, res.Fingerprints, 4)
	assert.NotEmpty(t, res.Fingerprints["01.md"])
}

func TestTSOBSStrategy(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{
		"01/title.txt":     "1. The Creation",
		"01/reference.txt": "A Bible story from: Genesis 1-2",
		"01/01.txt":        "This is how God made everything.",
		"01/02.txt":        "Then God said...",
		"02/title.txt":     "2. Sin Enters the World",
		"front/title.txt":  "Open Bible Stories",
	})
	m := &manifest.Manifest{TargetLanguage: manifest.Language{ID: "fr"}}
	res := run(t, newTSOBSStrategy(Binding{Manifest: m, InDir: in, OutDir: out}))
	assert.Equal(t, []string{"01.md", "front.md"}, res.Files)

	page := readOut(t, out, "01.md")
	assert.True(t, strings.HasPrefix(page, "# 1. The Creation\n"))
	assert.Contains(t, page, "![OBS Image](https://cdn.door43.org/obs/jpg/360px/obs-fr-01-02.jpg)\n\nThen God said...")
	assert.True(t, strings.HasSuffix(page, "_A Bible story from: Genesis 1-2_\n"))
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "02: chapter has no frames")
}

func TestTSHelpStrategy(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{
		"01/01.txt": "# servant\n\nA servant is...\n",
		"01/04.txt": "# grace\n\n## note\n",
	})
	res := run(t, newTSHelpStrategy(Binding{InDir: in, OutDir: out}))
	assert.Equal(t, []string{"01.md"}, res.Files)
	assert.Equal(t, "# Chapter 1\n\n## servant\n\nA servant is...\n\n## grace\n\n### note\n", readOut(t, out, "01.md"))
}
