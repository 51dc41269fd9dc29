package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// fields is the loosely shaped view shared by every metadata source.
type fields struct {
	PackageVersion     int
	Format             string
	GeneratorName      string
	GeneratorBuild     string
	Language           Language
	Project            IDName
	Type               IDName
	Resource           IDName
	SourceTranslations []any
	Translators        []any
	Checkers           []any
}

// readJSONFields parses a manifest.json, project.json or meta.json file.
// Comments and trailing commas are tolerated.
func readJSONFields(path string) (fields, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- repository file
	if err != nil {
		return fields{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return fields{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return fieldsFromMap(raw), nil
}

func fieldsFromMap(raw map[string]any) fields {
	var f fields
	if v, ok := raw["package_version"].(float64); ok {
		f.PackageVersion = int(v)
	}
	f.Format = str(raw["format"])
	if gen, ok := raw["generator"].(map[string]any); ok {
		f.GeneratorName = str(gen["name"])
		f.GeneratorBuild = str(gen["build"])
	} else {
		f.GeneratorName = str(raw["generator"])
	}

	lang := firstOf(raw, "target_language", "language")
	if m, ok := lang.(map[string]any); ok {
		f.Language = Language{
			ID:        firstStr(m, "id", "slug", "identifier"),
			Name:      firstStr(m, "name", "title"),
			Direction: firstStr(m, "direction", "dir"),
		}
	} else {
		f.Language.ID = str(lang)
	}

	f.Project = idName(firstOf(raw, "project", "project_id"))
	f.Type = idName(raw["type"])
	f.Resource = idName(firstOf(raw, "resource", "resource_id"))
	f.SourceTranslations, _ = raw["source_translations"].([]any)
	f.Translators, _ = raw["translators"].([]any)
	f.Checkers, _ = raw["checkers"].([]any)
	return f
}

// rcManifest is the subset of a resource-container manifest.yaml we read.
type rcManifest struct {
	DublinCore struct {
		Format     string `yaml:"format"`
		Identifier string `yaml:"identifier"`
		Title      string `yaml:"title"`
		Type       string `yaml:"type"`
		Language   struct {
			Identifier string `yaml:"identifier"`
			Title      string `yaml:"title"`
			Direction  string `yaml:"direction"`
		} `yaml:"language"`
		Contributor []string `yaml:"contributor"`
	} `yaml:"dublin_core"`
	Checking struct {
		Entity []string `yaml:"checking_entity"`
	} `yaml:"checking"`
	Projects []struct {
		Identifier string `yaml:"identifier"`
		Title      string `yaml:"title"`
	} `yaml:"projects"`
}

func readRCFields(path string) (fields, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- repository file
	if err != nil {
		return fields{}, err
	}
	var rc rcManifest
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return fields{}, fmt.Errorf("parse %s: %w", path, err)
	}
	dc := rc.DublinCore
	f := fields{
		Format:   dc.Format,
		Language: Language{ID: dc.Language.Identifier, Name: dc.Language.Title, Direction: dc.Language.Direction},
		Type:     IDName{ID: dc.Type},
		Resource: IDName{ID: dc.Identifier, Name: dc.Title},
	}
	if len(rc.Projects) == 1 {
		f.Project = IDName{ID: rc.Projects[0].Identifier, Name: rc.Projects[0].Title}
	}
	for _, c := range dc.Contributor {
		f.Translators = append(f.Translators, c)
	}
	for _, c := range rc.Checking.Entity {
		f.Checkers = append(f.Checkers, c)
	}
	return f, nil
}

// fillFrom copies every field of src that is still empty in m.
func (m *Manifest) fillFrom(src fields) {
	if m.PackageVersion == 0 {
		m.PackageVersion = src.PackageVersion
	}
	setIfEmpty(&m.Format, src.Format)
	setIfEmpty(&m.Generator.Name, src.GeneratorName)
	setIfEmpty(&m.Generator.Build, src.GeneratorBuild)
	setIfEmpty(&m.TargetLanguage.ID, src.Language.ID)
	setIfEmpty(&m.TargetLanguage.Name, src.Language.Name)
	setIfEmpty(&m.TargetLanguage.Direction, src.Language.Direction)
	setIfEmpty(&m.Project.ID, src.Project.ID)
	setIfEmpty(&m.Project.Name, src.Project.Name)
	setIfEmpty(&m.Type.ID, src.Type.ID)
	setIfEmpty(&m.Type.Name, src.Type.Name)
	setIfEmpty(&m.Resource.ID, src.Resource.ID)
	setIfEmpty(&m.Resource.Name, src.Resource.Name)
	if len(m.SourceTranslations) == 0 {
		m.SourceTranslations = src.SourceTranslations
	}
	if len(m.Translators) == 0 {
		m.Translators = src.Translators
	}
	if len(m.Checkers) == 0 {
		m.Checkers = src.Checkers
	}
}

func setIfEmpty(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = strings.TrimSpace(v)
	}
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func idName(v any) IDName {
	switch t := v.(type) {
	case string:
		return IDName{ID: strings.TrimSpace(t)}
	case map[string]any:
		return IDName{ID: firstStr(t, "id", "slug", "identifier"), Name: firstStr(t, "name", "title")}
	default:
		return IDName{}
	}
}
