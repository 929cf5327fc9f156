// Package backup copies files and folders into a backup root before they are
// deleted, keeping their path relative to the scanned root.
package backup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"lukechampine.com/blake3"
)

var (
	ErrNoBackupRoot = errors.New("backup root not set")
	ErrVerify       = errors.New("backup verification failed")
)

// Copier mirrors sources into a backup root.
type Copier struct {
	// Verify re-reads every copied file and compares blake3 digests.
	Verify bool

	logger logrus.FieldLogger
}

// NewCopier returns a Copier logging to logger.
func NewCopier(verify bool, logger logrus.FieldLogger) *Copier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Copier{Verify: verify, logger: logger}
}

// Destination returns the directory that source is copied into:
// backupRoot joined with the path of source's parent relative to sourceRoot.
// When sourceRoot is empty, or source lies outside it, the absolute parent
// directory is mirrored beneath backupRoot instead.
func Destination(source, sourceRoot, backupRoot string) string {
	parent := filepath.Dir(filepath.Clean(source))

	if sourceRoot != "" {
		rel, err := filepath.Rel(filepath.Clean(sourceRoot), parent)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			if rel == "." {
				return filepath.Clean(backupRoot)
			}
			return filepath.Join(backupRoot, rel)
		}
	}

	return filepath.Join(backupRoot, stripVolume(parent))
}

func stripVolume(p string) string {
	p = strings.TrimPrefix(p, filepath.VolumeName(p))
	return strings.TrimLeft(p, `/\`)
}

// Backup copies source (a file, folder or symlink) into its destination
// directory and returns the path of the copy. Existing files are overwritten.
func (c *Copier) Backup(source, sourceRoot, backupRoot string) (string, error) {
	if backupRoot == "" {
		return "", ErrNoBackupRoot
	}

	info, err := os.Lstat(source)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	destDir := Destination(source, sourceRoot, backupRoot)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, filepath.Base(source))

	switch {
	case info.IsDir():
		err = c.copyTree(source, dest, filepath.Clean(backupRoot))
	case info.Mode()&os.ModeSymlink != 0:
		err = copySymlink(source, dest)
	default:
		err = c.copyFile(source, dest, info)
	}
	if err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"path":   source,
		"backup": dest,
	}).Debug("backup complete")
	return dest, nil
}

// copyTree copies src into dst. The backup root and dst are never copied
// into themselves when they lie inside src.
func (c *Copier) copyTree(src, dst, backupRoot string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && (path == dst || path == backupRoot) {
			c.logger.WithField("path", path).Debug("skipping backup destination")
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			return copySymlink(path, target)
		case !info.Mode().IsRegular():
			c.logger.WithField("path", path).Warn("skipping special file in backup")
			return nil
		default:
			return c.copyFile(path, target, info)
		}
	})
}

func (c *Copier) copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	var srcSum []byte
	if c.Verify {
		h := blake3.New(32, nil)
		_, err = io.Copy(io.MultiWriter(out, h), in)
		srcSum = h.Sum(nil)
	} else {
		_, err = io.Copy(out, in)
	}
	if err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	// Best effort: a copy with a fresh mtime is still a valid backup.
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())

	if c.Verify {
		dstSum, err := fileDigest(dst)
		if err != nil {
			return fmt.Errorf("verify %s: %w", dst, err)
		}
		if !bytes.Equal(srcSum, dstSum) {
			return fmt.Errorf("%w: %s", ErrVerify, dst)
		}
	}
	return nil
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("read link %s: %w", src, err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("create link %s: %w", dst, err)
	}
	return nil
}

// fileDigest returns the blake3-256 digest of the file at path.
func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
