package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quoll/internal/database"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := database.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	rows := []database.Record{
		{RunID: "r1", Action: database.ActionDelete, Phase: database.PhasePrimary, Path: "/data/a.txt", ObjectType: "file", Size: 2048},
		{RunID: "r1", Action: database.ActionError, Phase: database.PhasePrimary, Path: "/data/locked.txt", ObjectType: "file", Size: 1, ErrorMessage: "permission denied"},
		{RunID: "r1", Action: database.ActionDelete, Phase: database.PhasePrune, Path: "/data/empty", ObjectType: "empty_directory"},
		{RunID: "r0", Timestamp: time.Now().AddDate(0, 0, -120), Action: database.ActionDelete, Phase: database.PhasePrimary, Path: "/old/b.txt", ObjectType: "file", Size: 10},
	}
	for _, r := range rows {
		if err := db.Record(r); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func runQuery(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	q := &query{out: &out}
	cmd := newRootCmd(q)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestQueries(t *testing.T) {
	db := seedDB(t)

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{"recent", []string{"--recent", "2"}, []string{"/data/empty", "/data/locked.txt"}, []string{"/old/b.txt"}},
		{"errors", []string{"--action", "ERROR"}, []string{"permission denied"}, []string{"/data/a.txt"}},
		{"path", []string{"--path", "/old/%"}, []string{"/old/b.txt"}, []string{"/data/"}},
		{"largest", []string{"--largest", "1"}, []string{"/data/a.txt", "2.0 KiB"}, []string{"/old/b.txt"}},
		{"run", []string{"--run", "r1"}, []string{"prune", "empty_directory"}, []string{"/old/b.txt"}},
		{"stats", []string{"--stats", "--days", "7"}, []string{"Runs:          1", "Deletions:     2", "Errors:        1", "2.0 KiB"}, nil},
		{"nothing", []string{"--path", "/nowhere/%"}, []string{"No records found"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runQuery(t, append([]string{"--db", db}, tt.args...)...)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output should not contain %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	db := seedDB(t)
	out, err := runQuery(t, "--db", db, "--run", "r1", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var recs []database.Record
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(recs) != 3 || recs[0].Path != "/data/a.txt" {
		t.Errorf("records = %+v", recs)
	}
}

func TestPruneOlderThan(t *testing.T) {
	db := seedDB(t)
	out, err := runQuery(t, "--db", db, "--prune-older-than", "30")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Deleted 1 records older than 30 days") {
		t.Errorf("output:\n%s", out)
	}
	out, _ = runQuery(t, "--db", db, "--path", "/old/%")
	if !strings.Contains(out, "No records found") {
		t.Errorf("old rows survived:\n%s", out)
	}
}

func TestDatabaseFromConfigFile(t *testing.T) {
	db := seedDB(t)
	cfg := filepath.Join(t.TempDir(), "quoll.yaml")
	if err := os.WriteFile(cfg, []byte("history_db: "+db+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runQuery(t, "--config", cfg, "--recent", "1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "/data/empty") {
		t.Errorf("output:\n%s", out)
	}
}

func TestUsageErrors(t *testing.T) {
	if _, err := runQuery(t, "--recent", "1"); !errors.Is(err, errNoDatabase) {
		t.Errorf("no database: err = %v", err)
	}
	if _, err := runQuery(t, "--db", seedDB(t)); !errors.Is(err, errNoQuery) {
		t.Errorf("no query: err = %v", err)
	}
}
