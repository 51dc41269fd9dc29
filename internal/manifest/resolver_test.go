package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func TestResolve_LegacyTSLayoutInfersGenerator(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"01/01.txt":       "\\c 1 \\v 1 In the beginning",
		"01/title.txt":    "Chapter 1",
		"02/01.txt":       "\\c 2 \\v 1 text",
		"front/title.txt": "Genesis",
	})

	r := NewResolver()
	res, err := r.Resolve(root, "en_gen_text_reg")
	require.NoError(t, err)

	assert.Equal(t, GeneratorTS, res.Generator)
	assert.Equal(t, FormatUSFM, res.Manifest.Format)
	assert.Equal(t, "gen", res.Manifest.ProjectID())
	assert.Equal(t, "reg", res.Manifest.ResourceID())
	assert.Equal(t, "en", res.Manifest.TargetLanguage.ID)
	assert.Equal(t, GeneratorTS, res.Manifest.GeneratorName())
	assert.Equal(t, root, res.ContentDir)
	assert.Equal(t, "en_gen_text_reg", res.Manifest.RepoName())

	first := readFile(t, res.ManifestPath)

	again, err := r.Resolve(root, "en_gen_text_reg")
	require.NoError(t, err)
	assert.Equal(t, GeneratorTS, again.Generator)
	assert.Equal(t, FileName, again.Source)
	assert.Equal(t, first, readFile(t, again.ManifestPath), "resolution must be idempotent")
}

func TestResolve_NonNumericDirectoryPreventsInference(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"01/01.usfm":   "\\c 1",
		"notes/a.usfm": "\\c 1",
	})
	res, err := NewResolver().Resolve(root, "en_mat_text_ulb")
	require.NoError(t, err)
	assert.Empty(t, res.Generator)
}

func TestResolve_ExplicitGeneratorFromProjectJSON(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"project.json": `{
			// tS android export
			"package_version": 5,
			"format": "markdown",
			"generator": {"name": "ts-android", "build": "175"},
			"target_language": {"id": "fr", "name": "français", "direction": "ltr"},
			"project": {"id": "obs", "name": "Open Bible Stories"},
			"type": {"id": "text", "name": "Text"},
			"translators": ["someone"],
		}`,
		"01/01.txt": "frame",
	})

	res, err := NewResolver().Resolve(root, "fr_obs")
	require.NoError(t, err)
	assert.Equal(t, "project.json", res.Source)
	assert.Equal(t, GeneratorTS, res.Generator)
	assert.Equal(t, FormatMarkdown, res.Manifest.Format)
	assert.Equal(t, "obs", res.Manifest.ResourceID())
	assert.Equal(t, "ts-android", res.Manifest.GeneratorName())
	assert.Equal(t, []any{"someone"}, res.Manifest.Translators)
	assert.FileExists(t, filepath.Join(root, FileName))
}

func TestResolve_ResourceContainerYAML(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"manifest.yaml": `dublin_core:
  format: text/usfm
  identifier: udb
  title: Unlocked Dynamic Bible
  language:
    identifier: es
    title: español
    direction: ltr
projects:
  - identifier: jhn
    title: John
`,
		"44-JHN.usfm": "\\id JHN",
	})
	res, err := NewResolver().Resolve(root, "es_udb")
	require.NoError(t, err)
	assert.Equal(t, "manifest.yaml", res.Source)
	assert.Equal(t, FormatUSFM, res.Manifest.Format)
	assert.Equal(t, "udb", res.Manifest.ResourceID())
	assert.Equal(t, "jhn", res.Manifest.ProjectID())
	assert.Empty(t, res.Generator)
}

func TestResolve_SynthesizesFromFilesAndShiftsRoot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"content/01.md": "# One",
		"content/02.md": "# Two",
		"README.md":     "readme",
	})
	res, err := NewResolver().Resolve(root, "handbook")
	require.NoError(t, err)
	assert.Empty(t, res.Source)
	assert.Equal(t, FormatMarkdown, res.Manifest.Format)
	assert.Equal(t, "text", res.Manifest.ResourceID())
	assert.Equal(t, filepath.Join(root, "content"), res.ContentDir)
	assert.Equal(t, filepath.Join(root, FileName), res.ManifestPath)
}

func TestResolve_UsesMetaJSON(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"meta.json": `{"generator": {"name": "ts-desktop"}, "project": {"id": "tit"}, "target_language": {"id": "en"}}`,
		"01/01.txt": "\\v 1 Paul",
	})
	res, err := NewResolver().Resolve(root, "titus")
	require.NoError(t, err)
	assert.Equal(t, GeneratorTS, res.Generator)
	assert.Equal(t, FormatUSFM, res.Manifest.Format)
	assert.Equal(t, "bible", res.Manifest.ResourceID())
	assert.Equal(t, "Titus", res.Manifest.Project.Name)
}

func TestResolve_UnresolvableManifest(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"image.png": "binary"})
	_, err := NewResolver().Resolve(root, "pictures")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryManifest))
}

func TestNormalizeFormat(t *testing.T) {
	cases := map[string]string{
		"USFM":          FormatUSFM,
		"text/usfm":     FormatUSFM,
		".sfm":          FormatUSFM,
		"markdown":      FormatMarkdown,
		"text/markdown": FormatMarkdown,
		"txt":           FormatText,
		"html":          "html",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeFormat(in), in)
	}
}

func TestLookupBook(t *testing.T) {
	b, ok := LookupBook("MAT")
	require.True(t, ok)
	assert.Equal(t, "41-MAT.usfm", b.FileName())
	b, ok = LookupBook("mal")
	require.True(t, ok)
	assert.Equal(t, "39", b.Number)
	assert.False(t, IsBook("obs"))
}
