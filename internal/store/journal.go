package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Export statuses as recorded in the journal.
const (
	StatusCreated = "created"
	StatusFailed  = "failed"
)

// ExportRecord is one journaled export attempt. The journal is a local
// audit trail of remote side effects; it never feeds back into the
// aggregated calendar.
type ExportRecord struct {
	ID        int
	RedmineID int
	SpentOn   string
	Activity  string
	Comment   string
	Hours     float64
	Status    string
	Error     string
	CreatedAt time.Time
}

func (db *DB) RecordExport(r *ExportRecord) (int64, error) {
	result, err := db.Exec(
		`INSERT INTO exports (redmine_id, spent_on, activity, comment, hours, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RedmineID, r.SpentOn, r.Activity, r.Comment, r.Hours, r.Status, r.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting export record: %w", err)
	}
	return result.LastInsertId()
}

func (db *DB) RecentExports(limit int) ([]ExportRecord, error) {
	rows, err := db.Query(
		`SELECT id, redmine_id, spent_on, activity, comment, hours, status, error, created_at
		 FROM exports
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying export records: %w", err)
	}
	defer rows.Close()

	var records []ExportRecord
	for rows.Next() {
		var r ExportRecord
		var redmineID sql.NullInt64
		var activity, errText sql.NullString
		var createdStr string

		if err := rows.Scan(
			&r.ID, &redmineID, &r.SpentOn, &activity, &r.Comment,
			&r.Hours, &r.Status, &errText, &createdStr,
		); err != nil {
			return nil, fmt.Errorf("scanning export record: %w", err)
		}

		r.RedmineID = int(redmineID.Int64)
		r.Activity = activity.String
		r.Error = errText.String
		if t, err := time.Parse("2006-01-02 15:04:05", createdStr); err == nil {
			r.CreatedAt = t
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
