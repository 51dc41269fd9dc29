// Package archive packs and expands the zip archives exchanged with the
// forge and the conversion service.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// Limits applied while expanding untrusted archives.
const (
	MaxEntries   = 50000
	MaxEntrySize = 512 << 20
)

// Pack writes every regular file below srcDir into a zip at dest. Entry
// names are slash separated and relative to srcDir; .git is skipped.
// extra entries are added when srcDir has no file of the same name.
// It returns the number of entries written.
func Pack(ctx context.Context, srcDir, dest string, extra map[string][]byte) (int, error) {
	files, err := listFiles(srcDir)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(dest) // #nosec G304 -- workspace path
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})

	present := make(map[string]bool, len(files))
	count := 0
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		present[rel] = true
		if err := addFile(zw, filepath.Join(srcDir, filepath.FromSlash(rel)), rel); err != nil {
			return count, err
		}
		count++
	}

	names := make([]string, 0, len(extra))
	for name := range extra {
		if !present[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return count, fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := w.Write(extra[name]); err != nil {
			return count, fmt.Errorf("write %s: %w", name, err)
		}
		count++
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("finalize %s: %w", dest, err)
	}
	return count, out.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path) // #nosec G304 -- walked from srcDir
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// listFiles returns slash-separated relative paths of regular files, sorted.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Expand extracts the zip at archivePath into destDir. Entries that would
// escape destDir are rejected.
func Expand(ctx context.Context, archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	if len(zr.File) > MaxEntries {
		return fmt.Errorf("archive has %d entries (limit %d)", len(zr.File), MaxEntries)
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}
		if f.UncompressedSize64 > MaxEntrySize {
			return fmt.Errorf("entry %s exceeds size limit", f.Name)
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640) // #nosec G304 -- safeJoin checked
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if err := copyLimited(out, rc, MaxEntrySize); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// ErrEntryTooLarge reports an entry whose content is longer than the limit,
// whatever its header claims.
var ErrEntryTooLarge = errors.New("entry exceeds size limit")

// copyLimited copies src to dst and fails instead of truncating when src holds
// more than limit bytes.
func copyLimited(dst io.Writer, src io.Reader, limit int64) error {
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return err
	}
	if n > limit {
		return ErrEntryTooLarge
	}
	return nil
}

func safeJoin(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	return filepath.Join(root, clean), nil
}

// SingleRoot returns the only top-level directory of dir when dir holds
// exactly one directory and no files. Forge archives wrap the tree this way.
func SingleRoot(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dir
	}
	var only string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "__MACOSX") {
			continue
		}
		if !e.IsDir() || only != "" {
			return dir
		}
		only = e.Name()
	}
	if only == "" {
		return dir
	}
	return filepath.Join(dir, only)
}
