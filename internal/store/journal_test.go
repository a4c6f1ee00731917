package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenAt(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndListExports(t *testing.T) {
	db := openTestDB(t)

	_, err := db.RecordExport(&ExportRecord{
		RedmineID: 202,
		SpentOn:   "2024-03-04",
		Activity:  "Dev",
		Comment:   "Sync #42",
		Hours:     1.5,
		Status:    StatusCreated,
	})
	require.NoError(t, err)

	_, err = db.RecordExport(&ExportRecord{
		SpentOn: "2024-03-05",
		Comment: "Review",
		Hours:   0.5,
		Status:  StatusFailed,
		Error:   "422 validation failed",
	})
	require.NoError(t, err)

	records, err := db.RecentExports(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "Review", records[0].Comment)
	assert.Equal(t, StatusFailed, records[0].Status)
	assert.Equal(t, "422 validation failed", records[0].Error)
	assert.Zero(t, records[0].RedmineID)

	assert.Equal(t, "Sync #42", records[1].Comment)
	assert.Equal(t, StatusCreated, records[1].Status)
	assert.Equal(t, 202, records[1].RedmineID)
	assert.Equal(t, 1.5, records[1].Hours)
}

func TestRecentExportsLimit(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 5; i++ {
		_, err := db.RecordExport(&ExportRecord{
			SpentOn: "2024-03-04",
			Comment: "Entry",
			Hours:   1,
			Status:  StatusCreated,
		})
		require.NoError(t, err)
	}

	records, err := db.RecentExports(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestRecentExportsEmpty(t *testing.T) {
	db := openTestDB(t)
	records, err := db.RecentExports(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
