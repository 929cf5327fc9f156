package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"quoll/internal/glob"
	"quoll/internal/units"
)

// File is the optional YAML config file. Every field is a default that an
// explicitly set command-line flag overrides.
type File struct {
	Names           []string `yaml:"names" json:"names"`
	Folders         []string `yaml:"folders" json:"folders"`
	Size            string   `yaml:"size" json:"size"`
	Backup          string   `yaml:"backup" json:"backup"`
	Recursive       *bool    `yaml:"recursive" json:"recursive"`
	RemoveEmptyDirs *bool    `yaml:"remove_empty_dirs" json:"remove_empty_dirs"`
	AssumeYes       *bool    `yaml:"assume_yes" json:"assume_yes"`
	VerifyBackup    *bool    `yaml:"verify_backup" json:"verify_backup"`
	HistoryDB       string   `yaml:"history_db" json:"history_db"`
	MetricsFile     string   `yaml:"metrics_file" json:"metrics_file"`
	DebugLog        string   `yaml:"debug_log" json:"debug_log"`
	LogLevel        string   `yaml:"log_level" json:"log_level"`
	Protect         []string `yaml:"protect" json:"protect"`
}

// Options are the raw, unvalidated settings gathered from flags and the
// config file.
type Options struct {
	Dir             string
	AssumeYes       bool
	Names           []string
	Folders         []string
	Size            string
	Backup          string
	FromFile        string
	Recursive       bool
	RemoveEmptyDirs bool
	DryRun          bool
	VerifyBackup    bool
	HistoryDB       string
	MetricsFile     string
	DebugLog        string
	LogLevel        string
	Protect         []string
}

// Config is the validated run configuration. It is not modified after Build.
type Config struct {
	// Root is empty only when the run works from an explicit file list.
	Root      string
	Recursive bool
	Filters   *glob.FilterSet

	SizeLimit    float64
	HasSizeLimit bool

	BackupRoot          string
	Explicit            []string
	RequireConfirmation bool
	RemoveEmptyDirs     bool
	DryRun              bool
	VerifyBackup        bool

	HistoryDB   string
	MetricsFile string
	DebugLog    string
	LogLevel    string
	Protected   []string
}

var (
	ErrNoDirectory = errors.New("directory does not exist")
	ErrNotDir      = errors.New("not a directory")
	ErrFromFile    = errors.New("cannot read file list")
	ErrBackupDir   = errors.New("cannot create backup directory")
	ErrLogLevel    = errors.New("unknown log level")
)

// ValidationError reports a setting that prevents the run from starting.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Load reads a YAML config file. Unknown keys are rejected.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return decode(f)
}

func decode(r io.Reader) (*File, error) {
	file := &File{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(file); err != nil {
		if errors.Is(err, io.EOF) {
			return file, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return file, nil
}

// DefaultPath returns the per-user config file location if one exists:
// $XDG_CONFIG_HOME/quoll/config.yaml, then ~/.config/quoll/config.yaml.
func DefaultPath() string {
	var candidates []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "quoll", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "quoll", "config.yaml"))
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c
		}
	}
	return ""
}

// Apply copies file settings into o for every option whose flag was not set
// explicitly. explicit is called with the long flag name.
func (f *File) Apply(o *Options, explicit func(flag string) bool) {
	if f == nil {
		return
	}
	use := func(flag string) bool { return explicit == nil || !explicit(flag) }

	if len(f.Names) > 0 && use("name") {
		o.Names = f.Names
	}
	if len(f.Folders) > 0 && use("folder") {
		o.Folders = f.Folders
	}
	if f.Size != "" && use("size") {
		o.Size = f.Size
	}
	if f.Backup != "" && use("backup") {
		o.Backup = f.Backup
	}
	if f.Recursive != nil && use("recursive") {
		o.Recursive = *f.Recursive
	}
	if f.RemoveEmptyDirs != nil && use("remove-empty-dir") {
		o.RemoveEmptyDirs = *f.RemoveEmptyDirs
	}
	if f.AssumeYes != nil && use("yes") {
		o.AssumeYes = *f.AssumeYes
	}
	if f.VerifyBackup != nil && use("verify-backup") {
		o.VerifyBackup = *f.VerifyBackup
	}
	if f.HistoryDB != "" && use("history-db") {
		o.HistoryDB = f.HistoryDB
	}
	if f.MetricsFile != "" && use("metrics-file") {
		o.MetricsFile = f.MetricsFile
	}
	if f.DebugLog != "" && use("debug-log") {
		o.DebugLog = f.DebugLog
	}
	if f.LogLevel != "" && use("log-level") {
		o.LogLevel = f.LogLevel
	}
	if len(f.Protect) > 0 {
		o.Protect = append(append([]string(nil), f.Protect...), o.Protect...)
	}
}

// Build validates o and produces the run configuration. It creates the
// backup root if needed but touches nothing else on disk.
func Build(o Options) (*Config, error) {
	if err := o.validateAndDefault(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Recursive:           o.Recursive,
		RequireConfirmation: !o.AssumeYes,
		RemoveEmptyDirs:     o.RemoveEmptyDirs,
		DryRun:              o.DryRun,
		VerifyBackup:        o.VerifyBackup,
		LogLevel:            o.LogLevel,
	}

	if o.FromFile != "" {
		explicit, err := readFileList(o.FromFile)
		if err != nil {
			return nil, invalid("from-file", fmt.Errorf("%w: %v", ErrFromFile, err))
		}
		cfg.Explicit = explicit
	}

	if o.Dir != "" {
		root, err := existingDir(o.Dir)
		if err != nil {
			return nil, invalid("directory", err)
		}
		cfg.Root = root
	}

	if o.Size != "" {
		limit, err := units.ParseSize(o.Size)
		if err != nil {
			return nil, invalid("size", fmt.Errorf("%w (%s)", err, units.Hint()))
		}
		cfg.SizeLimit = limit
		cfg.HasSizeLimit = true
	}

	filters, err := glob.New(o.Names, o.Folders)
	if err != nil {
		return nil, invalid("pattern", err)
	}
	cfg.Filters = filters

	var absErr error
	if cfg.HistoryDB, absErr = absOrEmpty(o.HistoryDB); absErr != nil {
		return nil, invalid("history-db", absErr)
	}
	if cfg.MetricsFile, absErr = absOrEmpty(o.MetricsFile); absErr != nil {
		return nil, invalid("metrics-file", absErr)
	}
	if cfg.DebugLog, absErr = absOrEmpty(o.DebugLog); absErr != nil {
		return nil, invalid("debug-log", absErr)
	}
	for _, p := range o.Protect {
		abs, err := absOrEmpty(p)
		if err != nil {
			return nil, invalid("protect", err)
		}
		if abs != "" {
			cfg.Protected = append(cfg.Protected, abs)
		}
	}

	if o.Backup != "" {
		backupRoot, err := filepath.Abs(o.Backup)
		if err != nil {
			return nil, invalid("backup", fmt.Errorf("%w: %v", ErrBackupDir, err))
		}
		if !o.DryRun {
			if err := os.MkdirAll(backupRoot, 0o755); err != nil {
				return nil, invalid("backup", fmt.Errorf("%w: %v", ErrBackupDir, err))
			}
		}
		cfg.BackupRoot = filepath.Clean(backupRoot)
	}

	return cfg, nil
}

func (o *Options) validateAndDefault() error {
	// The working directory is the target unless a file list replaces the scan.
	if o.Dir == "" && o.FromFile == "" {
		wd, err := os.Getwd()
		if err != nil {
			return invalid("directory", err)
		}
		o.Dir = wd
	}

	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		return invalid("log-level", fmt.Errorf("%w: %q", ErrLogLevel, o.LogLevel))
	}
	return nil
}

// HasRoot reports whether a directory is scanned.
func (c *Config) HasRoot() bool { return c.Root != "" }

func existingDir(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNoDirectory, abs)
		}
		return "", err
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDir, abs)
	}
	return filepath.Clean(abs), nil
}

// readFileList reads one path per line, skipping blank lines, and resolves
// each to an absolute path.
func readFileList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		abs, err := filepath.Abs(line)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func absOrEmpty(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
