package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleSink renders items for a terminal. Error items go to errOut.
type ConsoleSink struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	outR   *lipgloss.Renderer
	errR   *lipgloss.Renderer
}

// NewConsoleSink writes normal items to out and error items to errOut.
// Colour support is detected per writer.
func NewConsoleSink(out, errOut io.Writer) *ConsoleSink {
	return &ConsoleSink{
		out:    out,
		errOut: errOut,
		outR:   lipgloss.NewRenderer(out),
		errR:   lipgloss.NewRenderer(errOut),
	}
}

func (c *ConsoleSink) Write(item Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, r := c.out, c.outR
	if item.IsError {
		w, r = c.errOut, c.errR
	}

	var b strings.Builder
	b.WriteString(StyleFor(r, item.Kind).Render(item.Message))
	if item.Detail != "" {
		b.WriteString(": ")
		b.WriteString(StyleFor(r, DarkError).Render(item.Detail))
	}
	if item.NewLine {
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FileSink appends plain text to a log file, opening it for every write.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewTempFileSink creates an empty, uniquely named log file in dir, or in
// the system temp directory when dir is empty.
func NewTempFileSink(dir string) (*FileSink, error) {
	f, err := os.CreateTemp(dir, "quoll-*.log")
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return &FileSink{path: path}, nil
}

// NewFileSink appends to path, creating it if needed.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the log file location.
func (f *FileSink) Path() string { return f.path }

func (f *FileSink) Write(item Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(item.Message)
	if item.NewLine {
		b.WriteByte('\n')
	}
	if item.Detail != "" {
		if !item.NewLine {
			b.WriteByte('\n')
		}
		b.WriteString(item.Detail)
		b.WriteByte('\n')
	}

	if _, err := file.WriteString(b.String()); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
