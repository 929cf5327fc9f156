package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quoll/internal/cleanup"
	"quoll/internal/config"
	"quoll/internal/database"
	"quoll/internal/exitcodes"
	"quoll/internal/logging"
	"quoll/internal/metrics"
	"quoll/internal/output"
)

type app struct {
	opts       config.Options
	configPath string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// logDir overrides the directory of the per-run log file.
	logDir string

	code int
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(a.execute(os.Args[1:]))
}

func (a *app) execute(args []string) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(a.stderr, "Error:", err)
		return exitcodes.InvalidConfig
	}
	return a.code
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quoll [dir]",
		Short: "Delete files and folders by name or size, with optional backup",
		Long: `quoll selects files matching name globs or a size limit, and folders
matching folder globs, under a directory. It lists them, asks for
confirmation, backs them up if requested and deletes them. Folders left
empty can be pruned afterwards.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.opts.Dir = args[0]
			}
			a.code = a.run(cmd)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&a.opts.AssumeYes, "yes", "y", false, "Delete without asking for confirmation")
	f.StringSliceVarP(&a.opts.Names, "name", "n", nil, "File name globs, comma separated (default *)")
	f.StringSliceVarP(&a.opts.Folders, "folder", "f", nil, "Folder name globs, comma separated (default none)")
	f.StringVarP(&a.opts.Size, "size", "s", "", "Also select files up to this size, e.g. 10KB or 1.5MB")
	f.StringVarP(&a.opts.Backup, "backup", "b", "", "Copy every item here before deleting it")
	f.StringVar(&a.opts.FromFile, "from-file", "", "File listing extra paths to delete, one per line")
	f.BoolVarP(&a.opts.Recursive, "recursive", "r", false, "Descend into subdirectories")
	f.BoolVar(&a.opts.RemoveEmptyDirs, "remove-empty-dir", false, "Remove folders left empty afterwards")
	f.BoolVar(&a.opts.DryRun, "dry-run", false, "Report what would be deleted without deleting")
	f.BoolVar(&a.opts.VerifyBackup, "verify-backup", false, "Compare each backup copy with its source")
	f.StringVar(&a.configPath, "config", "", "YAML config file (default $XDG_CONFIG_HOME/quoll/config.yaml)")
	f.StringVar(&a.opts.HistoryDB, "history-db", "", "Record every processed item in this SQLite database")
	f.StringVar(&a.opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile at exit")
	f.StringVar(&a.opts.DebugLog, "debug-log", "", "Append diagnostic logs to this file")
	f.StringVar(&a.opts.LogLevel, "log-level", "info", "Diagnostic log level (debug, info, warn, error)")
	f.StringSliceVar(&a.opts.Protect, "protect", nil, "Extra paths that are never deleted")

	return cmd
}

// run owns the output pipeline for the whole process: it is created first
// and drained last, so every message reaches the log file.
func (a *app) run(cmd *cobra.Command) int {
	metrics.Init()

	sinks := []output.Sink{output.NewConsoleSink(a.stdout, a.stderr)}
	logFile, err := output.NewTempFileSink(a.logDir)
	if err != nil {
		fmt.Fprintf(a.stderr, "Could not create log file: %v\n", err)
	} else {
		sinks = append(sinks, logFile)
	}
	p := output.New(sinks...)
	p.OnWrite = metrics.RecordOutput

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	drainCtx, drainCancel := context.WithCancel(context.Background())
	defer drainCancel()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-drainCtx.Done():
			return
		}
		select {
		case <-sigs:
			drainCancel()
		case <-drainCtx.Done():
		}
	}()

	code, cfg := a.cleanup(ctx, cmd, p)

	if err := p.Close(drainCtx); err != nil {
		fmt.Fprintf(a.stderr, "Output interrupted: %v\n", err)
	}
	if logFile != nil {
		fmt.Fprintf(a.stdout, "Logs are saved to %s\n", logFile.Path())
	}
	if cfg != nil && cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			fmt.Fprintf(a.stderr, "Could not write metrics: %v\n", err)
		}
	}
	return code
}

func (a *app) cleanup(ctx context.Context, cmd *cobra.Command, p *output.Pipeline) (int, *config.Config) {
	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if path != "" {
		file, err := config.Load(path)
		if err != nil {
			p.Submit(output.Failure("Invalid config file "+path, err.Error()))
			return exitcodes.InvalidConfig, nil
		}
		file.Apply(&a.opts, cmd.Flags().Changed)
	}

	cfg, err := config.Build(a.opts)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			p.Submit(output.Failure("Invalid "+verr.Field, verr.Err.Error()))
		} else {
			p.Submit(output.Failure("Invalid configuration", err.Error()))
		}
		return exitcodes.InvalidConfig, nil
	}

	logger, closeLog, err := a.logger(cfg)
	if err != nil {
		p.Submit(output.Failure("Could not open debug log", err.Error()))
		return exitcodes.InvalidConfig, cfg
	}
	defer closeLog()

	orch := cleanup.NewOrchestrator(cfg, p, logger)
	orch.SetInput(a.stdin)

	if cfg.HistoryDB != "" {
		db, err := database.Open(cfg.HistoryDB)
		if err != nil {
			p.Submit(output.Failure("Could not open history database", err.Error()))
			return exitcodes.Failure, cfg
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.WithError(err).Warn("failed to close history database")
			}
		}()
		orch.SetHistory(db)
		logger.WithFields(logrus.Fields{"path": cfg.HistoryDB, "run_id": orch.RunID()}).Debug("recording history")
	}

	res := orch.Run(ctx)
	return res.ExitCode(), cfg
}

func (a *app) logger(cfg *config.Config) (logrus.FieldLogger, func(), error) {
	if cfg.DebugLog == "" {
		logger, err := logging.New(io.Discard, cfg.LogLevel)
		return logger, func() {}, err
	}
	f, err := logging.OpenFile(cfg.DebugLog)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(f, cfg.LogLevel)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, func() { f.Close() }, nil
}
