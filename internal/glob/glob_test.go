package glob

import (
	"errors"
	"testing"
)

func TestDefaultsToMatchAll(t *testing.T) {
	fs, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, name := range []string{"a.txt", "README", ".hidden"} {
		if !fs.MatchesFile(name) {
			t.Errorf("MatchesFile(%q) = false, want true with default pattern", name)
		}
	}
	if got := fs.FilePatterns(); len(got) != 1 || got[0] != MatchAll {
		t.Errorf("FilePatterns() = %v, want [%s]", got, MatchAll)
	}
}

func TestEmptyFolderListMatchesNothing(t *testing.T) {
	fs, err := New([]string{"*.log"}, []string{"", "  "})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if fs.SelectsFolders() {
		t.Error("SelectsFolders() = true, want false")
	}
	if got := fs.FolderPatterns(); len(got) != 0 {
		t.Errorf("FolderPatterns() = %v, want none", got)
	}
	for _, name := range []string{"node_modules", "bin", "*"} {
		if fs.MatchesFolder(name) {
			t.Errorf("MatchesFolder(%q) = true, want false", name)
		}
	}
}

func TestMatches(t *testing.T) {
	fs, err := New([]string{"*.txt", "build-?.log", "{a,b}.tmp"}, []string{"node_modules", "obj*"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fileTests := []struct {
		name string
		want bool
	}{
		{"x.txt", true},
		{"x.txt.bak", false},
		{"build-1.log", true},
		{"build-12.log", false},
		{"a.tmp", true},
		{"c.tmp", false},
	}
	for _, tt := range fileTests {
		if got := fs.MatchesFile(tt.name); got != tt.want {
			t.Errorf("MatchesFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	folderTests := []struct {
		name string
		want bool
	}{
		{"node_modules", true},
		{"obj", true},
		{"objects", true},
		{"src", false},
	}
	for _, tt := range folderTests {
		if got := fs.MatchesFolder(tt.name); got != tt.want {
			t.Errorf("MatchesFolder(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInvalidPattern(t *testing.T) {
	_, err := New([]string{"[abc"}, nil)
	if !errors.Is(err, ErrBadPattern) {
		t.Fatalf("New with bad pattern error = %v, want ErrBadPattern", err)
	}
	_, err = New(nil, []string{"{a,b"})
	if !errors.Is(err, ErrBadPattern) {
		t.Fatalf("New with bad folder pattern error = %v, want ErrBadPattern", err)
	}
}
