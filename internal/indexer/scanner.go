package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ScannedFile is a document found while walking an import directory.
type ScannedFile struct {
	RelPath string // Slash-separated path relative to the scan root
	AbsPath string
	Ext     string // Lower-case extension including the dot
}

// ScanDirectory walks root and returns every regular file whose extension is
// in exts, sorted by relative path. Hidden directories and files are skipped.
func ScanDirectory(ctx context.Context, root string, exts []string) ([]ScannedFile, error) {
	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(ext)] = true
	}

	var files []ScannedFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if !allowed[ext] {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}

		files = append(files, ScannedFile{
			RelPath: filepath.ToSlash(relPath),
			AbsPath: path,
			Ext:     ext,
		})
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}
