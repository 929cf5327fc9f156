package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWritesAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("Expected debug level, got %v", logger.GetLevel())
	}

	logger.WithField("path", "/tmp/x").Debug("scanning")
	if !strings.Contains(buf.String(), "scanning") || !strings.Contains(buf.String(), "path=/tmp/x") {
		t.Errorf("Expected debug entry with field, got %q", buf.String())
	}
}

func TestNewDefaultsLevel(t *testing.T) {
	logger, err := New(nil, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info level by default, got %v", logger.GetLevel())
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(nil, "loud"); err == nil {
		t.Fatal("Expected error for invalid level")
	}
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")

	for i := 0; i < 2; i++ {
		f, err := OpenFile(path)
		if err != nil {
			t.Fatalf("OpenFile failed: %v", err)
		}
		if _, err := f.WriteString("line\n"); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		f.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "line\nline\n" {
		t.Errorf("Expected two appended lines, got %q", data)
	}
}
