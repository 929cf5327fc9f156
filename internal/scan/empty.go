package scan

import (
	"os"
	"path/filepath"
)

// FindEmpty lists every folder below root whose subtree holds no files,
// children before parents. A parent and its child may both be listed. Folders
// that cannot be read count as non-empty, and excluded subtrees are neither
// listed nor allowed to make their parents empty.
func FindEmpty(root string, exclude ...string) ([]string, error) {
	root = filepath.Clean(root)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	f := emptyFinder{exclude: cleanAll(exclude)}
	for _, e := range entries {
		if e.IsDir() {
			f.visit(filepath.Join(root, e.Name()))
		}
	}
	return f.found, nil
}

type emptyFinder struct {
	exclude []string
	found   []string
}

// visit returns true when dir holds at least one file somewhere beneath it.
func (f *emptyFinder) visit(dir string) bool {
	for _, x := range f.exclude {
		if dir == x {
			return true
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}

	hasFiles := false
	for _, e := range entries {
		if !e.IsDir() {
			hasFiles = true
			continue
		}
		if f.visit(filepath.Join(dir, e.Name())) {
			hasFiles = true
		}
	}
	if !hasFiles {
		f.found = append(f.found, dir)
	}
	return hasFiles
}
