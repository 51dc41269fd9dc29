// Package manifest resolves a normalized description of a repository's
// content (format, resource, generator, project) from whatever metadata the
// repository carries, synthesizing the missing parts from its name and files.
package manifest

import "strings"

// FileName is the canonical manifest written back into every repository.
const FileName = "manifest.json"

// Current package version of the canonical manifest shape.
const PackageVersion = 6

// Known formats after normalization.
const (
	FormatUSFM     = "usfm"
	FormatMarkdown = "md"
	FormatText     = "txt"
)

// GeneratorTS is the generator tag for translationStudio content.
const GeneratorTS = "ts"

// IDName is the {id, name} pair used throughout the manifest.
type IDName struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Generator names the tool that produced the repository.
type Generator struct {
	Name  string `json:"name"`
	Build string `json:"build,omitempty"`
}

// Language describes the target language.
type Language struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Manifest is the canonical repository manifest.
type Manifest struct {
	PackageVersion     int       `json:"package_version"`
	Format             string    `json:"format"`
	Generator          Generator `json:"generator"`
	TargetLanguage     Language  `json:"target_language"`
	Project            IDName    `json:"project"`
	Type               IDName    `json:"type"`
	Resource           IDName    `json:"resource"`
	SourceTranslations []any     `json:"source_translations"`
	Translators        []any     `json:"translators"`
	Checkers           []any     `json:"checkers"`

	repoName string
}

// ResourceID returns the resource identifier (e.g. "ulb", "obs").
func (m *Manifest) ResourceID() string { return m.Resource.ID }

// GeneratorName returns the explicit generator name or "".
func (m *Manifest) GeneratorName() string { return m.Generator.Name }

// ProjectID returns the project identifier or "".
func (m *Manifest) ProjectID() string { return m.Project.ID }

// RepoName returns the repository the manifest was resolved for.
func (m *Manifest) RepoName() string { return m.repoName }

// GeneratorTag returns the generator tag implied by the explicit generator
// name: a known prefix itself or "<prefix>-..." yields the prefix.
func (m *Manifest) GeneratorTag(prefixes ...string) string {
	name := strings.ToLower(strings.TrimSpace(m.Generator.Name))
	for _, p := range prefixes {
		if name == p || strings.HasPrefix(name, p+"-") {
			return p
		}
	}
	return ""
}

// NormalizeFormat folds format spellings and media types to the known set.
// Unknown formats are returned lower-cased.
func NormalizeFormat(raw string) string {
	f := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.LastIndex(f, "/"); i >= 0 {
		f = f[i+1:]
	}
	f = strings.TrimPrefix(f, ".")
	switch f {
	case "usfm", "sfm":
		return FormatUSFM
	case "md", "markdown":
		return FormatMarkdown
	case "txt", "text":
		return FormatText
	default:
		return f
	}
}

func (m *Manifest) normalize() {
	m.PackageVersion = PackageVersion
	m.Format = NormalizeFormat(m.Format)
	m.Resource.ID = strings.ToLower(strings.TrimSpace(m.Resource.ID))
	m.Project.ID = strings.ToLower(strings.TrimSpace(m.Project.ID))
	if m.Project.Name == "" {
		if b, ok := LookupBook(m.Project.ID); ok {
			m.Project.Name = b.Name
		}
	}
	if m.TargetLanguage.ID != "" && m.TargetLanguage.Direction == "" {
		m.TargetLanguage.Direction = "ltr"
	}
	if m.Type.ID == "" {
		if m.Format == FormatUSFM {
			m.Type.ID = "text"
		} else {
			m.Type.ID = "book"
		}
	}
	if m.SourceTranslations == nil {
		m.SourceTranslations = []any{}
	}
	if m.Translators == nil {
		m.Translators = []any{}
	}
	if m.Checkers == nil {
		m.Checkers = []any{}
	}
}
