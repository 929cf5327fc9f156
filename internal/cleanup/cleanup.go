// Package cleanup runs the scan, report, confirm, delete and prune sequence
// for one invocation.
package cleanup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"quoll/internal/backup"
	"quoll/internal/config"
	"quoll/internal/database"
	"quoll/internal/disk"
	"quoll/internal/fsops"
	"quoll/internal/metrics"
	"quoll/internal/output"
	"quoll/internal/safety"
	"quoll/internal/scan"
)

// History stores one row per processed item.
type History interface {
	Record(r database.Record) error
}

// Orchestrator drives a single cleanup run. It is not safe for concurrent use.
type Orchestrator struct {
	cfg       *config.Config
	out       output.Submitter
	logger    logrus.FieldLogger
	scanner   *scan.Scanner
	copier    *backup.Copier
	deleter   fsops.Deleter
	validator *safety.Validator
	history   History
	input     *bufio.Reader

	state State
	res   Result
}

// NewOrchestrator creates an Orchestrator that deletes through the OS and
// reads confirmation from stdin.
func NewOrchestrator(cfg *config.Config, out output.Submitter, logger logrus.FieldLogger) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	metrics.Init()

	var allowed []string
	if cfg.HasRoot() {
		allowed = []string{cfg.Root}
	}
	protected := append([]string(nil), cfg.Protected...)
	if cfg.BackupRoot != "" {
		protected = append(protected, cfg.BackupRoot)
	}

	return &Orchestrator{
		cfg:       cfg,
		out:       out,
		logger:    logger,
		scanner:   scan.NewScanner(logger),
		copier:    backup.NewCopier(cfg.VerifyBackup, logger),
		deleter:   fsops.OSDeleter{},
		validator: safety.NewValidator(allowed, protected),
		input:     bufio.NewReader(os.Stdin),
		res:       Result{RunID: database.NewRunID(time.Now())},
	}
}

// SetDeleter replaces the filesystem deleter.
func (o *Orchestrator) SetDeleter(d fsops.Deleter) { o.deleter = d }

// SetValidator replaces the safety validator.
func (o *Orchestrator) SetValidator(v *safety.Validator) { o.validator = v }

// SetHistory records every processed item in h.
func (o *Orchestrator) SetHistory(h History) { o.history = h }

// SetInput sets where confirmation answers are read from.
func (o *Orchestrator) SetInput(r io.Reader) { o.input = bufio.NewReader(r) }

// State reports the step the run is in.
func (o *Orchestrator) State() State { return o.state }

// RunID identifies this run in the history database.
func (o *Orchestrator) RunID() string { return o.res.RunID }

// Run executes the whole sequence and always ends in the Done state.
// Cancelling ctx stops the run between items; an item already started is
// finished first.
func (o *Orchestrator) Run(ctx context.Context) Result {
	start := time.Now()

	o.out.Submit(output.Text(output.Default, "Preparing file lists to delete for folder:"))
	o.out.Submit(output.Line(output.Success, " "+o.describeRoot()))

	o.enter(Scanning)
	sel, err := o.scanner.Scan(scan.Options{
		Root:         o.cfg.Root,
		Recursive:    o.cfg.Recursive,
		Filters:      o.cfg.Filters,
		SizeLimit:    o.cfg.SizeLimit,
		HasSizeLimit: o.cfg.HasSizeLimit,
		Explicit:     o.cfg.Explicit,
		Exclude:      o.excluded(),
	})
	if err != nil {
		o.res.ScanErr = err
		o.logger.WithError(err).Error("scan failed")
		o.out.Submit(output.Failure("Could not scan "+o.cfg.Root, err.Error()))
		return o.finish(ctx, start)
	}
	metrics.RecordSelection("file", len(sel.Files))
	metrics.RecordSelection("folder", len(sel.Folders))

	if ctx.Err() == nil {
		o.process(ctx, batch{
			phase:    database.PhasePrimary,
			folders:  sel.Folders,
			files:    sel.Files,
			explicit: sel.IsExplicit,
		})
	}

	if ctx.Err() == nil && o.cfg.RemoveEmptyDirs && o.cfg.HasRoot() {
		o.prune(ctx)
	}

	return o.finish(ctx, start)
}

// batch is one Report, confirm and Delete pass.
type batch struct {
	phase    string
	folders  []string
	files    []string
	explicit func(path string) bool
}

func (b batch) size() int { return len(b.folders) + len(b.files) }

func (o *Orchestrator) process(ctx context.Context, b batch) {
	o.enter(Reporting)
	if b.size() == 0 {
		if b.phase == database.PhasePrimary {
			o.out.Submit(output.Line(output.Warning, "No files to delete."))
		}
		return
	}

	if b.phase == database.PhasePrune {
		o.report(ctx, "=== Empty Folders Affected ===", b.folders)
	} else {
		o.report(ctx, "=== Folders Affected ===", b.folders)
		o.report(ctx, "=== Files Affected ===", b.files)
	}
	if ctx.Err() != nil {
		return
	}

	if o.cfg.RequireConfirmation && !o.cfg.DryRun {
		if !o.confirm(ctx, b.size()) {
			o.res.Declined = true
			return
		}
	}

	o.enter(Deleting)
	for _, p := range b.folders {
		if ctx.Err() != nil {
			return
		}
		o.handle(b, p, true)
	}
	for _, p := range b.files {
		if ctx.Err() != nil {
			return
		}
		o.handle(b, p, false)
	}
	o.out.Submit(output.Line(output.Default, ""))
}

func (o *Orchestrator) report(ctx context.Context, header string, paths []string) {
	if len(paths) == 0 {
		return
	}
	o.out.Submit(output.Line(output.Default, ""))
	o.out.Submit(output.Line(output.Default, header))
	for _, p := range paths {
		if ctx.Err() != nil {
			return
		}
		o.out.Submit(output.Text(output.DarkSuccess, "→ "))
		o.out.Submit(output.Line(output.Success, p))
	}
	o.out.Submit(output.Line(output.Default, ""))
}

// confirm asks once and reads one line. Only "y" in either case proceeds.
func (o *Orchestrator) confirm(ctx context.Context, n int) bool {
	o.enter(AwaitingConfirmation)
	o.out.Submit(output.Text(output.Warning,
		fmt.Sprintf("Are you sure to delete all these %d items? Y/y for yes, others for no: ", n)))

	answer := make(chan string, 1)
	go func() {
		line, _ := o.input.ReadString('\n')
		answer <- line
	}()

	select {
	case line := <-answer:
		if strings.EqualFold(strings.TrimSpace(line), "y") {
			return true
		}
	case <-ctx.Done():
	}

	o.logger.Info("confirmation declined")
	o.out.Submit(output.Line(output.Default, "Process terminated."))
	return false
}

func (o *Orchestrator) prune(ctx context.Context) {
	o.enter(PruneEmpty)

	empty, err := scan.FindEmpty(o.cfg.Root, o.excluded()...)
	if err != nil {
		o.logger.WithError(err).Warn("empty folder search failed")
		o.out.Submit(output.Failure("Could not search for empty folders in "+o.cfg.Root, err.Error()))
		return
	}
	metrics.RecordSelection("empty_folder", len(empty))
	if len(empty) == 0 {
		return
	}

	o.process(ctx, batch{phase: database.PhasePrune, folders: empty})
}

// handle backs up and deletes one entry. Failures are reported and counted,
// never returned, so the batch always continues.
func (o *Orchestrator) handle(b batch, path string, isDir bool) {
	start := time.Now()
	pruning := b.phase == database.PhasePrune
	log := o.logger.WithFields(logrus.Fields{"path": path, "phase": b.phase})

	o.out.Submit(output.Text(output.DarkSuccess, "→ "))
	o.out.Submit(output.Text(output.DarkWarning, "Deleting "))
	o.out.Submit(output.Text(output.Default, path))

	objectType := "file"
	switch {
	case pruning:
		objectType = "empty_directory"
	case isDir:
		objectType = "directory"
	}
	rec := database.Record{Phase: b.phase, Path: path, ObjectType: objectType}

	var verr error
	if b.explicit != nil && b.explicit(path) {
		verr = o.validator.ValidateExplicitTarget(path)
	} else {
		verr = o.validator.ValidateDeleteTarget(path)
	}
	if verr != nil {
		o.res.SafetyBlocked++
		metrics.SafetyBlocksTotal.Inc()
		log.WithError(verr).Warn("refused by safety validator")
		o.out.Submit(output.Text(output.DarkError, " ✗"))
		o.out.Submit(output.Failure("Refused to delete "+path, verr.Error()))
		rec.Action, rec.ErrorMessage = database.ActionSkip, verr.Error()
		o.record(rec)
		return
	}

	size, err := disk.EntrySize(path)
	if errors.Is(err, fs.ErrNotExist) {
		o.gone(rec, pruning, start)
		return
	}
	if err != nil {
		log.WithError(err).Debug("size incomplete")
	}
	rec.Size = size

	if o.cfg.DryRun {
		o.res.DryRunItems++
		o.res.DryRunBytes += size
		o.out.Submit(output.Line(output.DarkVerbose, " (dry run)"))
		rec.Action = database.ActionDryRun
		o.record(rec)
		return
	}

	if o.cfg.BackupRoot != "" && !pruning {
		dest, err := o.copier.Backup(path, o.cfg.Root, o.cfg.BackupRoot)
		if err != nil {
			o.fail(rec, "backup", "Could not back up "+path, err)
			return
		}
		rec.BackupPath = dest
		metrics.RecordBackup(size)
	}

	if isDir && !pruning {
		err = o.deleter.RemoveAll(path)
	} else {
		err = o.deleter.Remove(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		o.gone(rec, pruning, start)
		return
	}
	if err != nil {
		o.fail(rec, "delete", "Could not delete "+path, err)
		return
	}

	elapsed := time.Since(start)
	switch {
	case pruning:
		o.res.Pruned++
	case isDir:
		o.res.FoldersDeleted++
	default:
		o.res.FilesDeleted++
	}
	o.res.BytesFreed += size
	metrics.RecordDeletion(isDir || pruning, size, elapsed)
	log.WithField("size", size).Debug("deleted")

	o.out.Submit(output.Text(output.DarkSuccess, " ✓"))
	o.out.Submit(output.Line(output.Default, " ("+formatMillis(elapsed)+")"))
	rec.Action = database.ActionDelete
	o.record(rec)
}

// gone handles an entry that disappeared before it could be removed. A pruned
// folder that vanished counts as removed; anything else is a warning.
func (o *Orchestrator) gone(rec database.Record, pruning bool, start time.Time) {
	if pruning {
		o.res.Pruned++
		o.out.Submit(output.Text(output.DarkSuccess, " ✓"))
		o.out.Submit(output.Line(output.Default, " ("+formatMillis(time.Since(start))+")"))
		rec.Action = database.ActionDelete
		o.record(rec)
		return
	}
	o.res.Missing++
	o.logger.WithField("path", rec.Path).Warn("already gone")
	o.out.Submit(output.Line(output.Warning, " already gone"))
	rec.Action, rec.ErrorMessage = database.ActionSkip, "already gone"
	o.record(rec)
}

func (o *Orchestrator) fail(rec database.Record, stage, msg string, err error) {
	o.res.Failed++
	metrics.RecordItemError(rec.Phase, stage)
	o.logger.WithFields(logrus.Fields{"path": rec.Path, "stage": stage}).WithError(err).Error("item failed")
	o.out.Submit(output.Text(output.DarkError, " ✗"))
	o.out.Submit(output.Failure(msg, err.Error()))
	rec.Action, rec.ErrorMessage = database.ActionError, err.Error()
	o.record(rec)
}

func (o *Orchestrator) record(rec database.Record) {
	if o.history == nil {
		return
	}
	rec.RunID = o.res.RunID
	if err := o.history.Record(rec); err != nil {
		o.logger.WithError(err).Warn("failed to record history")
	}
}

func (o *Orchestrator) finish(ctx context.Context, start time.Time) Result {
	o.enter(Done)
	o.res.Interrupted = ctx.Err() != nil
	o.res.Elapsed = time.Since(start)

	if o.res.ScanErr == nil {
		o.summarise()
	}
	if o.res.Interrupted {
		o.out.Submit(output.Line(output.Warning, "Interrupted."))
	}
	o.out.Submit(output.Text(output.DarkSuccess, "Done. "))
	o.out.Submit(output.Line(output.Default, "Elapsed "+formatElapsed(o.res.Elapsed)+"."))

	metrics.RecordRun(o.res.Elapsed, o.res.Interrupted)
	o.logger.WithFields(logrus.Fields{
		"run_id":   o.res.RunID,
		"deleted":  o.res.Deleted(),
		"failed":   o.res.Failed,
		"blocked":  o.res.SafetyBlocked,
		"freed":    o.res.BytesFreed,
		"duration": o.res.Elapsed,
	}).Info("cleanup complete")

	return o.res
}

func (o *Orchestrator) summarise() {
	r := &o.res
	if o.cfg.DryRun {
		o.out.Submit(output.Line(output.Warning, fmt.Sprintf("Dry run: %d items would be deleted, freeing %s.",
			r.DryRunItems, humanize.IBytes(uint64(r.DryRunBytes)))))
	} else if r.Deleted() > 0 {
		msg := fmt.Sprintf("Deleted %d files and %d folders, freed %s.",
			r.FilesDeleted, r.FoldersDeleted, humanize.IBytes(uint64(r.BytesFreed)))
		if r.Pruned > 0 {
			msg += fmt.Sprintf(" Removed %d empty folders.", r.Pruned)
		}
		o.out.Submit(output.Line(output.Success, msg))
	}
	if r.Missing > 0 {
		o.out.Submit(output.Line(output.Warning, fmt.Sprintf("%d items were already gone.", r.Missing)))
	}
	if r.SafetyBlocked > 0 {
		o.out.Submit(output.Line(output.Error, fmt.Sprintf("%d items refused by safety checks.", r.SafetyBlocked)))
	}
	if r.Failed > 0 {
		o.out.Submit(output.Line(output.Error, fmt.Sprintf("%d items failed.", r.Failed)))
	}

	if !o.cfg.HasRoot() {
		return
	}
	usage, err := disk.GetUsage(o.cfg.Root)
	if err != nil {
		o.logger.WithError(err).Debug("free space unavailable")
		return
	}
	metrics.UpdateFilesystem(o.cfg.Root, usage)
	o.out.Submit(output.Line(output.Verbose, fmt.Sprintf("Free space: %s of %s (%.1f%%).",
		humanize.IBytes(usage.FreeBytes), humanize.IBytes(usage.TotalBytes), usage.FreePercent())))
}

func (o *Orchestrator) enter(s State) {
	o.state = s
	o.res.States = append(o.res.States, s)
	o.logger.WithField("state", s.String()).Debug("state change")
}

// excluded lists subtrees never selected or pruned.
func (o *Orchestrator) excluded() []string {
	if o.cfg.BackupRoot == "" {
		return nil
	}
	return []string{o.cfg.BackupRoot}
}

func (o *Orchestrator) describeRoot() string {
	if o.cfg.HasRoot() {
		return o.cfg.Root
	}
	return "(file list)"
}
