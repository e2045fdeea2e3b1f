package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// IsModelFile reports whether path has a model definition extension
func IsModelFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// FindModelFiles returns the model definition files at path. A file is
// returned as is; a directory is searched recursively. Results are sorted so
// models are always built in the same order.
func FindModelFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip hidden directories such as .git
		if d.IsDir() {
			if p != path && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}

		if IsModelFile(p) {
			files = append(files, p)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
