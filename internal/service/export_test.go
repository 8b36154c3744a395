package service

import (
	"strings"
	"testing"
	"time"

	"buildwatch/internal/store"

	"github.com/stretchr/testify/assert"
)

func TestExport_WriteHistoryCSV(t *testing.T) {
	t.Run("success - empty history yields exactly the header row", func(t *testing.T) {
		// act
		var b strings.Builder
		err := WriteHistoryCSV(&b, nil)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, "Build Number,Status,Repository,Duration (s),Tags,Notes,Timestamp", b.String())
	})
	t.Run("success - one quoted row per record in store order", func(t *testing.T) {
		// arrange
		createdOn := time.Date(2025, 11, 4, 15, 30, 45, 0, time.UTC)
		records := []store.BuildRecord{
			{
				BuildID:     "b2",
				BuildNumber: asPtr(int64(42)),
				RepoURL:     "https://github.com/x/y",
				Status:      store.StatusSuccess,
				Duration:    8499,
				Tags:        store.Tags{"hotfix", "release"},
				Notes:       `deployed to "staging"`,
				CreatedOn:   createdOn,
			},
			{
				BuildID:   "b1",
				RepoURL:   "https://github.com/x/z",
				Status:    store.StatusQueued,
				Duration:  0,
				Tags:      store.Tags{},
				CreatedOn: createdOn,
			},
		}

		// act
		var b strings.Builder
		err := WriteHistoryCSV(&b, records)

		// assert
		assert.NoError(t, err)
		lines := strings.Split(b.String(), "\n")
		assert.Len(t, lines, 3)
		assert.Equal(
			t,
			`"42","SUCCESS","https://github.com/x/y","8","hotfix, release","deployed to ""staging""","11/4/2025, 3:30:45 PM"`,
			lines[1],
		)
		assert.Equal(
			t,
			`"N/A","QUEUED","https://github.com/x/z","0","","","11/4/2025, 3:30:45 PM"`,
			lines[2],
		)
	})
}

func TestExport_ExportFilename(t *testing.T) {
	t.Run("success - filename embeds the export epoch", func(t *testing.T) {
		// act
		name := ExportFilename(time.UnixMilli(1730000000000))

		// assert
		assert.Equal(t, "build-history-1730000000000.csv", name)
	})
}
