package database

import (
	"database/sql"
	"time"
)

const selectColumns = `
	SELECT id, run_id, timestamp, action, phase, path, file_name,
	       object_type, size, backup_path, error_message
	FROM history
`

// GetRecent returns the N most recent records
func (h *HistoryDB) GetRecent(limit int) ([]Record, error) {
	return h.query(selectColumns+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetByAction returns records filtered by action type
func (h *HistoryDB) GetByAction(action string, limit int) ([]Record, error) {
	return h.query(selectColumns+`
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, action, limit)
}

// GetByPath returns records whose path matches a LIKE pattern
func (h *HistoryDB) GetByPath(pathPattern string, limit int) ([]Record, error) {
	return h.query(selectColumns+`
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, pathPattern, limit)
}

// GetByRun returns every record of one run in processing order
func (h *HistoryDB) GetByRun(runID string) ([]Record, error) {
	return h.query(selectColumns+`
	WHERE run_id = ?
	ORDER BY id ASC
	`, runID)
}

// GetLargest returns the N largest deletions by size
func (h *HistoryDB) GetLargest(limit int) ([]Record, error) {
	return h.query(selectColumns+`
	WHERE action = 'DELETE'
	ORDER BY size DESC
	LIMIT ?
	`, limit)
}

// GetTotalSpaceFreed returns total bytes freed in a time range
func (h *HistoryDB) GetTotalSpaceFreed(start, end time.Time) (int64, error) {
	var total int64
	err := h.db.QueryRow(`
	SELECT COALESCE(SUM(size), 0)
	FROM history
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`, start, end).Scan(&total)
	return total, err
}

// Stats holds aggregated history for a time period
type Stats struct {
	Runs            int
	TotalDeletions  int
	TotalDryRuns    int
	TotalSkipped    int
	TotalErrors     int
	TotalSpaceFreed int64
	ByPhase         map[string]int
	StartDate       time.Time
	EndDate         time.Time
}

// GetStats returns statistics for the last days days
func (h *HistoryDB) GetStats(days int) (*Stats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &Stats{StartDate: since, EndDate: now}

	err := h.db.QueryRow(`
		SELECT
			COUNT(DISTINCT run_id),
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'DRY_RUN' THEN 1 END),
			COUNT(CASE WHEN action = 'SKIP' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM history
		WHERE timestamp >= ?
	`, since).Scan(&stats.Runs, &stats.TotalDeletions, &stats.TotalDryRuns, &stats.TotalSkipped, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	stats.TotalSpaceFreed, err = h.GetTotalSpaceFreed(since, now)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.Query(`
		SELECT phase, COUNT(*)
		FROM history
		WHERE action = 'DELETE' AND timestamp >= ?
		GROUP BY phase
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats.ByPhase = make(map[string]int)
	for rows.Next() {
		var phase string
		var count int
		if err := rows.Scan(&phase, &count); err != nil {
			return nil, err
		}
		stats.ByPhase[phase] = count
	}
	return stats, rows.Err()
}

// DeleteOldRecords removes records older than the given number of days
func (h *HistoryDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := h.db.Exec(`DELETE FROM history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (h *HistoryDB) query(query string, args ...interface{}) ([]Record, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var fileName, backupPath, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Action, &r.Phase, &r.Path,
			&fileName, &r.ObjectType, &r.Size, &backupPath, &errMsg,
		)
		if err != nil {
			return nil, err
		}
		r.FileName = fileName.String
		r.BackupPath = backupPath.String
		r.ErrorMessage = errMsg.String

		records = append(records, r)
	}
	return records, rows.Err()
}
