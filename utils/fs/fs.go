package fs

import (
	"io/fs"
	"os"
	"path/filepath"
)

// LoadFile reads a whole file, returning nil when it cannot be read.
func LoadFile(filePath string) []byte {
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return nil
	}
	return buf
}

// GetFilePaths walks root and returns the files whose name matches any of patterns.
// Directories whose name matches an excluded pattern are skipped.
func GetFilePaths(root string, patterns []string, excludedPatterns ...string) ([]string, error) {
	if root == "" {
		root = "."
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && isMatch(d.Name(), excludedPatterns...) {
				return filepath.SkipDir
			}
			return nil
		}
		if isMatch(d.Name(), patterns...) && !isMatch(d.Name(), excludedPatterns...) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func isMatch(name string, patterns ...string) bool {
	for _, item := range patterns {
		if matched, _ := filepath.Match(item, name); matched {
			return true
		}
	}
	return false
}
