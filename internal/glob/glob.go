// Package glob holds the file-name and folder-name patterns that select
// entries for deletion.
package glob

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchAll is the file pattern used when none is configured.
const MatchAll = "*"

var ErrBadPattern = errors.New("invalid glob pattern")

// FilterSet matches base names against ordered pattern lists.
type FilterSet struct {
	files    []string
	folders  []string
	foldCase bool
}

// New validates the patterns and builds a FilterSet. Blank entries are ignored.
// An empty file list is defaulted to MatchAll; an empty folder list stays empty
// and never matches.
func New(filePatterns, folderPatterns []string) (*FilterSet, error) {
	fs := &FilterSet{foldCase: hostFoldsCase()}

	var err error
	if fs.files, err = fs.compile(filePatterns); err != nil {
		return nil, err
	}
	if fs.folders, err = fs.compile(folderPatterns); err != nil {
		return nil, err
	}
	if len(fs.files) == 0 {
		fs.files = []string{MatchAll}
	}
	return fs, nil
}

func (fs *FilterSet) compile(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, p)
		}
		if fs.foldCase {
			p = strings.ToLower(p)
		}
		out = append(out, p)
	}
	return out, nil
}

// MatchesFile reports whether name matches any file pattern.
func (fs *FilterSet) MatchesFile(name string) bool {
	return fs.match(fs.files, name)
}

// MatchesFolder reports whether name matches any folder pattern.
func (fs *FilterSet) MatchesFolder(name string) bool {
	return fs.match(fs.folders, name)
}

// SelectsFolders reports whether any folder pattern is configured.
func (fs *FilterSet) SelectsFolders() bool {
	return len(fs.folders) > 0
}

// FilePatterns returns a copy of the effective file patterns.
func (fs *FilterSet) FilePatterns() []string {
	return append([]string(nil), fs.files...)
}

// FolderPatterns returns a copy of the effective folder patterns.
func (fs *FilterSet) FolderPatterns() []string {
	return append([]string(nil), fs.folders...)
}

func (fs *FilterSet) match(patterns []string, name string) bool {
	if fs.foldCase {
		name = strings.ToLower(name)
	}
	for _, p := range patterns {
		// Patterns were validated in New, so Match cannot fail here.
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// hostFoldsCase follows the default file name case sensitivity of the host.
func hostFoldsCase() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}
