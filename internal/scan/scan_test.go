package scan

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"quoll/internal/glob"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
}

func filters(t *testing.T, files, folders string) *glob.FilterSet {
	t.Helper()
	split := func(s string) []string {
		if s == "" {
			return nil
		}
		return strings.Split(s, ",")
	}
	set, err := glob.New(split(files), split(folders))
	if err != nil {
		t.Fatalf("glob.New: %v", err)
	}
	return set
}

func quietScanner() *Scanner {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return NewScanner(l)
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScanGlobRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.txt"), 10)
	writeFile(t, filepath.Join(root, "y.log"), 10)
	writeFile(t, filepath.Join(root, "sub", "z.txt"), 10)

	sel, err := quietScanner().Scan(Options{
		Root:      root,
		Recursive: true,
		Filters:   filters(t, "*.txt", ""),
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := sorted([]string{filepath.Join(root, "x.txt"), filepath.Join(root, "sub", "z.txt")})
	if got := sorted(sel.Files); !equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
	if len(sel.Folders) != 0 {
		t.Errorf("folders = %v, want none", sel.Folders)
	}
}

func TestScanNonRecursiveStaysAtRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), 1)
	writeFile(t, filepath.Join(root, "sub", "b.txt"), 1)
	writeFile(t, filepath.Join(root, "sub", "deep", "c.txt"), 1)

	sel, err := quietScanner().Scan(Options{Root: root, Filters: filters(t, "*", "")})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if want := []string{filepath.Join(root, "a.txt")}; !equal(sel.Files, want) {
		t.Errorf("files = %v, want %v", sel.Files, want)
	}
}

func TestScanSelectedFolderHidesDescendants(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.txt"), 1)
	writeFile(t, filepath.Join(root, "src", "node_modules", "x.txt"), 1)
	writeFile(t, filepath.Join(root, "src", "main.txt"), 1)

	explicitUnderFolder := filepath.Join(root, "node_modules", "pkg", "index.txt")

	sel, err := quietScanner().Scan(Options{
		Root:      root,
		Recursive: true,
		Filters:   filters(t, "*.txt", "node_modules"),
		Explicit:  []string{explicitUnderFolder},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	wantFolders := sorted([]string{
		filepath.Join(root, "node_modules"),
		filepath.Join(root, "src", "node_modules"),
	})
	if got := sorted(sel.Folders); !equal(got, wantFolders) {
		t.Fatalf("folders = %v, want %v", got, wantFolders)
	}
	for _, f := range sel.Files {
		for _, d := range sel.Folders {
			if strings.HasPrefix(f, d+string(os.PathSeparator)) {
				t.Errorf("file %s listed under selected folder %s", f, d)
			}
		}
	}
	if want := []string{filepath.Join(root, "src", "main.txt")}; !equal(sel.Files, want) {
		t.Errorf("files = %v, want %v", sel.Files, want)
	}
}

func TestScanGlobOrSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "small.txt"), 5)
	writeFile(t, filepath.Join(root, "small.bin"), 5)
	writeFile(t, filepath.Join(root, "big.txt"), 5000)
	writeFile(t, filepath.Join(root, "big.bin"), 5000)
	writeFile(t, filepath.Join(root, "empty.bin"), 0)

	sel, err := quietScanner().Scan(Options{
		Root:         root,
		Filters:      filters(t, "*.txt", ""),
		SizeLimit:    1024,
		HasSizeLimit: true,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := sorted([]string{
		filepath.Join(root, "small.txt"),
		filepath.Join(root, "small.bin"),
		filepath.Join(root, "big.txt"),
		filepath.Join(root, "empty.bin"),
	})
	if got := sorted(sel.Files); !equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestScanZeroSizeLimitSelectsEmptyFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "empty.bin"), 0)
	writeFile(t, filepath.Join(root, "full.bin"), 1)

	sel, err := quietScanner().Scan(Options{
		Root:         root,
		Filters:      filters(t, "*.none", ""),
		HasSizeLimit: true,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if want := []string{filepath.Join(root, "empty.bin")}; !equal(sel.Files, want) {
		t.Errorf("files = %v, want %v", sel.Files, want)
	}
}

func TestScanExplicitFilesFirstAndDeduplicated(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	a := filepath.Join(root, "a.txt")
	outside := filepath.Join(other, "keep.dat")
	writeFile(t, a, 1)
	writeFile(t, outside, 1)

	sel, err := quietScanner().Scan(Options{
		Root:     root,
		Filters:  filters(t, "*.txt", ""),
		Explicit: []string{outside, a, outside},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if want := []string{outside, a}; !equal(sel.Files, want) {
		t.Fatalf("files = %v, want %v", sel.Files, want)
	}
	if !sel.IsExplicit(outside) || !sel.IsExplicit(a) {
		t.Errorf("explicit files not flagged")
	}
}

func TestScanExplicitOnlyWithoutRoot(t *testing.T) {
	sel, err := quietScanner().Scan(Options{
		Filters:  filters(t, "", ""),
		Explicit: []string{"/data/a", "/data/b"},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if want := []string{"/data/a", "/data/b"}; !equal(sel.Files, want) {
		t.Errorf("files = %v, want %v", sel.Files, want)
	}
}

func TestScanSkipsExcludedSubtree(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backup")
	writeFile(t, filepath.Join(backupDir, "old.txt"), 1)
	writeFile(t, filepath.Join(root, "new.txt"), 1)

	sel, err := quietScanner().Scan(Options{
		Root:      root,
		Recursive: true,
		Filters:   filters(t, "*.txt", "backup"),
		Exclude:   []string{backupDir},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(sel.Folders) != 0 {
		t.Errorf("excluded folder selected: %v", sel.Folders)
	}
	if want := []string{filepath.Join(root, "new.txt")}; !equal(sel.Files, want) {
		t.Errorf("files = %v, want %v", sel.Files, want)
	}
}

func TestScanKeepsFolderHoldingExcludedPath(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep")
	backupDir := filepath.Join(keep, "bk")
	writeFile(t, filepath.Join(backupDir, "old.log"), 1)
	writeFile(t, filepath.Join(keep, "a.txt"), 1)

	sel, err := quietScanner().Scan(Options{
		Root:      root,
		Recursive: true,
		Filters:   filters(t, "*.txt", "keep"),
		Exclude:   []string{backupDir},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(sel.Folders) != 0 {
		t.Errorf("folder holding the backup root selected: %v", sel.Folders)
	}
	if want := []string{filepath.Join(keep, "a.txt")}; !equal(sel.Files, want) {
		t.Errorf("files = %v, want %v", sel.Files, want)
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := quietScanner().Scan(Options{
		Root:    filepath.Join(t.TempDir(), "missing"),
		Filters: filters(t, "", ""),
	})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFindEmpty(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, "a", "b", "c"))
	mkdir(t, filepath.Join(root, "d"))
	writeFile(t, filepath.Join(root, "e", "keep.txt"), 1)
	mkdir(t, filepath.Join(root, "e", "hollow"))
	mkdir(t, filepath.Join(root, "backup", "empty"))

	got, err := FindEmpty(root, filepath.Join(root, "backup"))
	if err != nil {
		t.Fatalf("FindEmpty: %v", err)
	}

	want := sorted([]string{
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "b"),
		filepath.Join(root, "a", "b", "c"),
		filepath.Join(root, "d"),
		filepath.Join(root, "e", "hollow"),
	})
	if !equal(sorted(got), want) {
		t.Fatalf("FindEmpty = %v, want %v", got, want)
	}

	// Children come before their parents.
	idx := map[string]int{}
	for i, p := range got {
		idx[p] = i
	}
	if idx[filepath.Join(root, "a", "b", "c")] > idx[filepath.Join(root, "a")] {
		t.Errorf("child listed after parent: %v", got)
	}
}

func TestFindEmptyNeverListsFolderWithFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "q", "r", "deep.txt"), 1)
	mkdir(t, filepath.Join(root, "p", "s"))

	got, err := FindEmpty(root)
	if err != nil {
		t.Fatalf("FindEmpty: %v", err)
	}
	for _, dir := range got {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				t.Errorf("%s listed empty but holds %s", dir, path)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
	}
	if want := []string{filepath.Join(root, "p", "s")}; !equal(got, want) {
		t.Errorf("FindEmpty = %v, want %v", got, want)
	}
}

func TestScanLogsPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), 1)

	var buf strings.Builder
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)

	if _, err := NewScanner(l).Scan(Options{Root: root, Filters: filters(t, "*.txt", "node_modules")}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, want := range []string{"scan started", "folder_patterns=\"[node_modules]\"", "file_patterns=\"[*.txt]\""} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log missing %s:\n%s", want, buf.String())
		}
	}
}
