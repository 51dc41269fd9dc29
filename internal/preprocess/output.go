package preprocess

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
)

// output accumulates the files and warnings of one run.
type output struct {
	dir          string
	files        []string
	warnings     []string
	fingerprints map[string]string
}

func newOutput(dir string) (*output, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.FileSystemError("failed to create output dir").WithCause(err).Build()
	}
	return &output{dir: dir, fingerprints: map[string]string{}}, nil
}

func (o *output) warn(format string, args ...any) {
	o.warnings = append(o.warnings, fmt.Sprintf(format, args...))
}

func (o *output) write(rel string, data []byte) error {
	p := filepath.Join(o.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.FileSystemError("failed to create output dir").WithCause(err).WithContext("path", rel).Build()
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return errors.FileSystemError("failed to write output file").WithCause(err).WithContext("path", rel).Build()
	}
	o.files = append(o.files, rel)
	return nil
}

// writeMarkdown writes a markdown file and records its fingerprint.
func (o *output) writeMarkdown(rel string, body []byte) error {
	if err := o.write(rel, body); err != nil {
		return err
	}
	o.fingerprints[rel] = mdfp.CalculateFingerprintFromParts("", string(body))
	return nil
}

func (o *output) copyFile(src, rel string) error {
	in, err := os.Open(src) // #nosec G304 -- repository file
	if err != nil {
		o.warn("skipped %s: %v", rel, err)
		return nil
	}
	defer in.Close()
	p := filepath.Join(o.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.FileSystemError("failed to create output dir").WithCause(err).WithContext("path", rel).Build()
	}
	out, err := os.Create(p) // #nosec G304 -- output dir
	if err != nil {
		return errors.FileSystemError("failed to create output file").WithCause(err).WithContext("path", rel).Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.FileSystemError("failed to copy file").WithCause(err).WithContext("path", rel).Build()
	}
	if err := out.Close(); err != nil {
		return errors.FileSystemError("failed to close output file").WithCause(err).WithContext("path", rel).Build()
	}
	o.files = append(o.files, rel)
	return nil
}

func (o *output) result() Result {
	sort.Strings(o.files)
	r := Result{Success: len(o.files) > 0, Files: o.files, Warnings: o.warnings}
	if len(o.fingerprints) > 0 {
		r.Fingerprints = o.fingerprints
	}
	if !r.Success {
		r.Warnings = append(r.Warnings, "no output files were produced")
	}
	return r
}

// walkFiles lists regular files below root as slash-separated relative
// paths, skipping hidden entries.
func walkFiles(root string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if rel, err := filepath.Rel(root, p); err == nil {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// numbered is a directory or file whose base name is an integer.
type numbered struct {
	Name   string
	Number int
}

// numberedEntries lists entries of dir whose name (without extension) is an
// integer, in numeric order. wantDirs selects directories or files.
func numberedEntries(dir string, wantDirs bool) []numbered {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []numbered
	for _, e := range entries {
		if e.IsDir() != wantDirs {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		n, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		out = append(out, numbered{Name: e.Name(), Number: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// readText returns the trimmed content of a file, or "" when missing.
func readText(path string) string {
	data, err := os.ReadFile(path) // #nosec G304 -- repository file
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func pad2(n int) string {
	return fmt.Sprintf("%02d", n)
}
