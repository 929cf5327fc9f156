package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"quoll/internal/config"
	"quoll/internal/database"
	"quoll/internal/exitcodes"
)

var (
	errNoDatabase = errors.New("no history database: pass --db or set history_db in the config file")
	errNoQuery    = errors.New("no query given")
)

type query struct {
	dbPath     string
	configPath string
	recent     int
	stats      bool
	days       int
	action     string
	path       string
	largest    int
	runID      string
	pruneOlder int
	json       bool

	out io.Writer
}

func main() {
	q := &query{out: os.Stdout}
	cmd := newRootCmd(q)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		if errors.Is(err, errNoDatabase) || errors.Is(err, errNoQuery) {
			os.Exit(exitcodes.InvalidConfig)
		}
		os.Exit(exitcodes.Failure)
	}
}

func newRootCmd(q *query) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quoll-history",
		Short: "Query the quoll deletion history database",
		Example: `  quoll-history --recent 10           # 10 most recent items
  quoll-history --stats --days 7      # totals for the last week
  quoll-history --action ERROR        # failed items
  quoll-history --path '/var/log/%'   # items under /var/log
  quoll-history --largest 10          # 10 largest deletions
  quoll-history --run <run-id>        # everything from one run
  quoll-history --prune-older-than 90 # drop rows older than 90 days`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return q.run(cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&q.dbPath, "db", "", "History database (default history_db from the config file)")
	f.StringVar(&q.configPath, "config", "", "YAML config file")
	f.IntVar(&q.recent, "recent", 0, "Show the N most recent items")
	f.BoolVar(&q.stats, "stats", false, "Show totals")
	f.IntVar(&q.days, "days", 30, "Days covered by --stats")
	f.StringVar(&q.action, "action", "", "Filter by action (DELETE, DRY_RUN, SKIP, ERROR)")
	f.StringVar(&q.path, "path", "", "Filter by path pattern (SQL LIKE syntax)")
	f.IntVar(&q.largest, "largest", 0, "Show the N largest deletions")
	f.StringVar(&q.runID, "run", "", "Show every item of one run")
	f.IntVar(&q.pruneOlder, "prune-older-than", 0, "Delete rows older than N days")
	f.BoolVar(&q.json, "json", false, "Output JSON")

	return cmd
}

func (q *query) run(cmd *cobra.Command) error {
	path, err := q.resolveDB()
	if err != nil {
		return err
	}

	db, err := database.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	const limit = 100
	switch {
	case q.pruneOlder > 0:
		return q.prune(db)
	case q.stats:
		return q.showStats(db)
	case q.runID != "":
		return q.showRecords(db.GetByRun(q.runID))
	case q.recent > 0:
		return q.showRecords(db.GetRecent(q.recent))
	case q.action != "":
		return q.showRecords(db.GetByAction(q.action, limit))
	case q.path != "":
		return q.showRecords(db.GetByPath(q.path, limit))
	case q.largest > 0:
		return q.showRecords(db.GetLargest(q.largest))
	default:
		cmd.SetOut(q.out)
		_ = cmd.Usage()
		return errNoQuery
	}
}

func (q *query) resolveDB() (string, error) {
	if q.dbPath != "" {
		return q.dbPath, nil
	}
	path := q.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return "", errNoDatabase
	}
	file, err := config.Load(path)
	if err != nil {
		return "", err
	}
	if file.HistoryDB == "" {
		return "", errNoDatabase
	}
	return file.HistoryDB, nil
}

func (q *query) prune(db *database.HistoryDB) error {
	n, err := db.DeleteOldRecords(q.pruneOlder)
	if err != nil {
		return err
	}
	if err := db.Vacuum(); err != nil {
		return err
	}
	if q.json {
		return q.writeJSON(map[string]int64{"deleted": n})
	}
	fmt.Fprintf(q.out, "Deleted %d records older than %d days\n", n, q.pruneOlder)
	return nil
}

func (q *query) showStats(db *database.HistoryDB) error {
	stats, err := db.GetStats(q.days)
	if err != nil {
		return err
	}
	if q.json {
		return q.writeJSON(stats)
	}

	fmt.Fprintf(q.out, "History (last %d days)\n", q.days)
	fmt.Fprintf(q.out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(q.out, "Runs:          %d\n", stats.Runs)
	fmt.Fprintf(q.out, "Deletions:     %d\n", stats.TotalDeletions)
	fmt.Fprintf(q.out, "Dry runs:      %d\n", stats.TotalDryRuns)
	fmt.Fprintf(q.out, "Skipped:       %d\n", stats.TotalSkipped)
	fmt.Fprintf(q.out, "Errors:        %d\n", stats.TotalErrors)
	fmt.Fprintf(q.out, "Space freed:   %s\n", humanize.IBytes(uint64(stats.TotalSpaceFreed)))

	if len(stats.ByPhase) > 0 {
		phases := make([]string, 0, len(stats.ByPhase))
		for p := range stats.ByPhase {
			phases = append(phases, p)
		}
		sort.Strings(phases)
		fmt.Fprintln(q.out, "\nDeletions by phase:")
		for _, p := range phases {
			fmt.Fprintf(q.out, "  %-10s %d\n", p, stats.ByPhase[p])
		}
	}
	return nil
}

func (q *query) showRecords(records []database.Record, err error) error {
	if err != nil {
		return err
	}
	if q.json {
		return q.writeJSON(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(q.out, "No records found")
		return nil
	}

	w := tabwriter.NewWriter(q.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWhen\tAction\tPhase\tType\tSize\tPath\tError")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Action,
			r.Phase,
			r.ObjectType,
			humanize.IBytes(uint64(r.Size)),
			r.Path,
			r.ErrorMessage,
		)
	}
	return w.Flush()
}

func (q *query) writeJSON(v interface{}) error {
	enc := json.NewEncoder(q.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
