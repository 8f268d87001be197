package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DirPermissions is used for destination directories created by jobs
const DirPermissions = 0o755

// ScannedFile is a regular file found by ScanFiles. Rel is its path relative
// to the scan root, or its base name when the file itself was a root.
type ScannedFile struct {
	Path string
	Rel  string
	Size int64
}

// ScannedDir is a directory found by ScanFiles, the roots included. The Rel of
// a root directory is ".".
type ScannedDir struct {
	Path string
	Rel  string
}

// Scan is the result of ScanFiles. Files are sorted by path; Dirs are sorted
// so that every directory comes before its parents.
type Scan struct {
	Files      []ScannedFile
	Dirs       []ScannedDir
	TotalBytes int64
}

// ScanFiles expands paths into the regular files they contain. Directories are
// walked recursively and a path reached twice is listed once.
func ScanFiles(paths []string) (Scan, error) {
	var scan Scan
	seenFiles := make(map[string]bool)
	seenDirs := make(map[string]bool)

	for _, root := range paths {
		abs, err := filepath.Abs(root)
		if err != nil {
			return Scan{}, fmt.Errorf("failed to get absolute path of %s: %w", root, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return Scan{}, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if info.Mode().IsRegular() && !seenFiles[abs] {
				seenFiles[abs] = true
				scan.Files = append(scan.Files, ScannedFile{Path: abs, Rel: filepath.Base(abs), Size: info.Size()})
				scan.TotalBytes += info.Size()
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(abs, path)
			if err != nil {
				return err
			}

			if d.IsDir() {
				if !seenDirs[path] {
					seenDirs[path] = true
					scan.Dirs = append(scan.Dirs, ScannedDir{Path: path, Rel: rel})
				}
				return nil
			}
			if !d.Type().IsRegular() || seenFiles[path] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			seenFiles[path] = true
			scan.Files = append(scan.Files, ScannedFile{Path: path, Rel: rel, Size: info.Size()})
			scan.TotalBytes += info.Size()
			return nil
		})
		if err != nil {
			return Scan{}, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}

	sort.Slice(scan.Files, func(i, j int) bool { return scan.Files[i].Path < scan.Files[j].Path })
	// A directory sorts after its parent, so reverse order is deepest first
	sort.Slice(scan.Dirs, func(i, j int) bool { return scan.Dirs[i].Path > scan.Dirs[j].Path })
	return scan, nil
}

// EnsureDir creates dir and its parents unless it already exists
func EnsureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return os.MkdirAll(dir, DirPermissions)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
