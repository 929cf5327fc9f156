package disk

import (
	"io/fs"
	"os"
	"path/filepath"
)

// EntrySize returns the bytes held by path: the file size, or the total of
// every regular file beneath a directory. Symlinks count as their own size.
// Unreadable parts of a tree are skipped.
func EntrySize(path string) (int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	return TreeSize(path), nil
}

// TreeSize sums the sizes of regular files under root.
func TreeSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
