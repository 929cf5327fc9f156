package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"quoll/internal/glob"
)

var errNoFilters = errors.New("scan: no filter set")

// Options describe one scan. Root may be empty when only Explicit files are
// to be processed.
type Options struct {
	Root      string
	Recursive bool
	Filters   *glob.FilterSet

	// SizeLimit is only honoured when HasSizeLimit is set, so a limit of
	// zero selects empty files rather than disabling the filter.
	SizeLimit    float64
	HasSizeLimit bool

	// Explicit files bypass the filters and are listed first.
	Explicit []string

	// Exclude lists subtrees that are neither selected nor descended into.
	Exclude []string
}

// Selection is the read-only result of a scan.
type Selection struct {
	Files   []string
	Folders []string

	explicit map[string]struct{}
}

// Empty reports whether nothing was selected.
func (s *Selection) Empty() bool {
	return len(s.Files) == 0 && len(s.Folders) == 0
}

// IsExplicit reports whether path came from the explicit file list.
func (s *Selection) IsExplicit(path string) bool {
	_, ok := s.explicit[path]
	return ok
}

// Scanner walks a directory tree and selects entries for deletion.
type Scanner struct {
	logger logrus.FieldLogger
}

// NewScanner creates a new Scanner with the given logger
func NewScanner(logger logrus.FieldLogger) *Scanner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scanner{logger: logger}
}

// Scan performs a single top-down walk of opts.Root. The filesystem is only
// read, never modified.
func (s *Scanner) Scan(opts Options) (*Selection, error) {
	if opts.Filters == nil {
		return nil, errNoFilters
	}

	sel := &Selection{explicit: make(map[string]struct{})}
	seen := make(map[string]struct{})

	for _, p := range opts.Explicit {
		p = filepath.Clean(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		sel.explicit[p] = struct{}{}
		sel.Files = append(sel.Files, p)
	}

	if opts.Root == "" {
		return sel, nil
	}

	w := &walker{
		opts:    opts,
		sel:     sel,
		seen:    seen,
		exclude: cleanAll(opts.Exclude),
		logger:  s.logger,
	}

	root := filepath.Clean(opts.Root)
	s.logger.WithFields(logrus.Fields{
		"root":            root,
		"recursive":       opts.Recursive,
		"file_patterns":   opts.Filters.FilePatterns(),
		"folder_patterns": opts.Filters.FolderPatterns(),
	}).Debug("scan started")
	if err := w.walk(root); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	if len(sel.Folders) > 0 {
		sel.Files = dropUnderFolders(sel.Files, sel.Folders)
	}

	s.logger.WithFields(logrus.Fields{
		"root":    root,
		"files":   len(sel.Files),
		"folders": len(sel.Folders),
	}).Info("scan complete")

	return sel, nil
}

type walker struct {
	opts    Options
	sel     *Selection
	seen    map[string]struct{}
	exclude []string
	logger  logrus.FieldLogger
}

func (w *walker) walk(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	// Subdirectories first: a selected folder takes its whole subtree with it.
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if w.excluded(path) {
			w.logger.WithField("path", path).Debug("skipping excluded folder")
			continue
		}
		if w.opts.Filters.MatchesFolder(e.Name()) {
			if !w.holdsExcluded(path) {
				w.sel.Folders = append(w.sel.Folders, path)
				continue
			}
			w.logger.WithField("path", path).Warn("folder holds an excluded path, not selecting it")
		}
		if !w.opts.Recursive {
			continue
		}
		if err := w.walk(path); err != nil {
			w.logger.WithFields(logrus.Fields{
				"path":  path,
				"error": err,
			}).Warn("failed to read folder, skipping subtree")
		}
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, dup := w.seen[path]; dup {
			continue
		}
		if !w.selectFile(e, path) {
			continue
		}
		w.seen[path] = struct{}{}
		w.sel.Files = append(w.sel.Files, path)
	}
	return nil
}

// selectFile applies the OR rule: a glob match or a size within the limit.
func (w *walker) selectFile(e os.DirEntry, path string) bool {
	if w.opts.Filters.MatchesFile(e.Name()) {
		return true
	}
	if !w.opts.HasSizeLimit {
		return false
	}
	info, err := e.Info()
	if err != nil {
		w.logger.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Warn("failed to stat file")
		return false
	}
	return float64(info.Size()) <= w.opts.SizeLimit
}

func (w *walker) excluded(path string) bool {
	for _, x := range w.exclude {
		if path == x {
			return true
		}
	}
	return false
}

func (w *walker) holdsExcluded(path string) bool {
	prefix := path + string(os.PathSeparator)
	for _, x := range w.exclude {
		if strings.HasPrefix(x, prefix) {
			return true
		}
	}
	return false
}

func cleanAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}

func dropUnderFolders(files, folders []string) []string {
	out := files[:0]
	for _, f := range files {
		if !underAny(f, folders) {
			out = append(out, f)
		}
	}
	return out
}

func underAny(path string, folders []string) bool {
	for _, d := range folders {
		if strings.HasPrefix(path, d+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
