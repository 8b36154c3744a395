package service

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"buildwatch/internal"
	"buildwatch/internal/store"
)

var exportHeader = []string{
	"Build Number",
	"Status",
	"Repository",
	"Duration (s)",
	"Tags",
	"Notes",
	"Timestamp",
}

// missingBuildNumber is the placeholder for builds the external system
// never assigned a number to.
const missingBuildNumber = "N/A"

// WriteHistoryCSV serializes a history snapshot in store order,
// most-recent-first. Every cell is double-quoted, which rules out
// encoding/csv: it quotes only when a cell needs it. Embedded quotes are
// doubled. An empty history produces exactly the header row.
func WriteHistoryCSV(w io.Writer, records []store.BuildRecord) error {
	var b strings.Builder
	b.WriteString(strings.Join(exportHeader, ","))

	for _, r := range records {
		number := missingBuildNumber
		if r.BuildNumber != nil {
			number = strconv.FormatInt(*r.BuildNumber, 10)
		}
		cells := []string{
			number,
			string(r.Status),
			r.RepoURL,
			strconv.FormatInt(int64(math.Round(float64(r.Duration)/1000)), 10),
			strings.Join(r.Tags, ", "),
			r.Notes,
			r.CreatedOn.Format(internal.ExportTimestampLayout),
		}
		quoted := make([]string, 0, len(cells))
		for _, cell := range cells {
			quoted = append(quoted, quoteCell(cell))
		}
		b.WriteString("\n" + strings.Join(quoted, ","))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func quoteCell(cell string) string {
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}

// ExportFilename embeds the export time so repeated exports never collide.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("build-history-%d.csv", now.UnixMilli())
}
