package loader

import (
	"io/fs"
	"os"
	"path/filepath"
)

// maxFileSize caps files picked up by directory walks (32 MB).
const maxFileSize = 32 << 20

var skippedDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
}

// WalkSupported traverses root and returns the paths of all regular files
// whose extension has a registered loader. Hidden and tooling directories
// are skipped, as are empty and oversized files. A single file path is
// returned as-is when supported.
func WalkSupported(root string, reg *Registry) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if reg.Supported(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !reg.Supported(path) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() == 0 || fi.Size() > maxFileSize {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
