package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
)

// Candidate manifest files, in lookup order.
var manifestFiles = []string{FileName, "project.json", "manifest.yaml"}

// tS keeps book metadata in these non-chapter directories.
var metadataDirs = map[string]bool{"front": true, "back": true}

// Resolution is the outcome of resolving a repository.
type Resolution struct {
	Manifest *Manifest
	// RepoDir is the repository root that holds manifest.json.
	RepoDir string
	// ContentDir is the effective root strategies read from.
	ContentDir string
	// Generator is the generator tag ("" or a known prefix).
	Generator string
	// ManifestPath is the canonical manifest written during resolution.
	ManifestPath string
	// Source names the file the manifest was read from, or "" when synthesized.
	Source string
}

// Resolver produces canonical manifests.
type Resolver struct {
	prefixes []string
}

// NewResolver creates a resolver recognizing the given generator prefixes.
// With none, the tS prefix is used.
func NewResolver(prefixes ...string) *Resolver {
	if len(prefixes) == 0 {
		prefixes = []string{GeneratorTS}
	}
	return &Resolver{prefixes: prefixes}
}

// Resolve inspects repoDir, writes the canonical manifest.json back into it
// and reports the generator tag and the effective content root.
func (r *Resolver) Resolve(repoDir, repoName string) (*Resolution, error) {
	m := &Manifest{repoName: repoName}
	res := &Resolution{Manifest: m, RepoDir: repoDir, ContentDir: repoDir}

	for _, name := range manifestFiles {
		p := filepath.Join(repoDir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		var (
			f   fields
			err error
		)
		if strings.HasSuffix(name, ".yaml") {
			f, err = readRCFields(p)
		} else {
			f, err = readJSONFields(p)
		}
		if err != nil {
			slog.Warn("Ignoring unreadable manifest", logfields.Path(p), logfields.Error(err))
			continue
		}
		m.fillFrom(f)
		res.Source = name
		break
	}

	if meta, err := readJSONFields(filepath.Join(repoDir, "meta.json")); err == nil {
		m.fillFrom(meta)
	}
	m.fillFrom(fieldsFromRepoName(repoName))

	if m.Format == "" {
		m.Format = sniffFormat(repoDir)
	}
	m.Format = NormalizeFormat(m.Format)
	refineTextFormat(m)
	if m.Format == "" {
		return nil, errors.ManifestError("unable to determine the format of the repository").
			WithContext("repo", repoName).
			Build()
	}
	m.Resource.ID = resolveResourceID(m)
	m.normalize()

	dirs := topLevelDirs(repoDir)
	res.Generator = m.GeneratorTag(r.prefixes...)
	if res.Generator == "" && isLegacyTSLayout(m, dirs) {
		res.Generator = GeneratorTS
		m.Generator.Name = GeneratorTS
	}
	if res.Generator == "" {
		for _, shift := range []string{"content", "usfm"} {
			if dirs[shift] {
				res.ContentDir = filepath.Join(repoDir, shift)
				break
			}
		}
	}

	res.ManifestPath = filepath.Join(repoDir, FileName)
	if err := Write(m, res.ManifestPath); err != nil {
		return nil, errors.FileSystemError("failed to write manifest").WithCause(err).Build()
	}

	slog.Debug("Manifest resolved",
		logfields.Repository(repoName),
		logfields.Format(m.Format),
		logfields.Resource(m.Resource.ID),
		logfields.Generator(res.Generator),
		logfields.Path(res.ContentDir))
	return res, nil
}

// Write stores m as indented JSON at path.
func Write(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// resolveResourceID applies the fallback chain for a missing resource id.
func resolveResourceID(m *Manifest) string {
	if id := strings.TrimSpace(m.Resource.ID); id != "" {
		return id
	}
	switch {
	case strings.EqualFold(m.Project.ID, "obs"):
		return "obs"
	case NormalizeFormat(m.Format) == FormatUSFM && IsBook(m.Project.ID):
		return "bible"
	case m.Project.ID != "":
		return m.Project.ID
	default:
		return "text"
	}
}

// isLegacyTSLayout recognizes tS repositories that carry no generator
// metadata: USFM content for a known book, stored in numbered chapter dirs.
func isLegacyTSLayout(m *Manifest, dirs map[string]bool) bool {
	if m.Format != FormatUSFM || !IsBook(m.Project.ID) {
		return false
	}
	chapters := 0
	for d := range dirs {
		if metadataDirs[d] {
			continue
		}
		if _, err := strconv.Atoi(d); err != nil {
			return false
		}
		chapters++
	}
	return chapters > 0
}

// topLevelDirs lists non-hidden subdirectories of root.
func topLevelDirs(root string) map[string]bool {
	out := map[string]bool{}
	entries, err := os.ReadDir(root)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out[e.Name()] = true
		}
	}
	return out
}
