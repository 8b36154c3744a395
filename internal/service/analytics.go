package service

import (
	"fmt"
	"math"
	"slices"
	"time"

	"buildwatch/internal/jenkins"
	"buildwatch/internal/store"
)

// DefaultTrendSize is how many recent builds the duration trend covers.
const DefaultTrendSize = 10

// BuildSummary is the canonical shape every statistic is computed from.
// Both the locally tracked records and the raw list from the external
// source normalize into it before any counting happens.
type BuildSummary struct {
	Label     string
	Status    store.BuildStatus
	Duration  int64 // milliseconds
	Timestamp time.Time
}

// SummarizeRecords normalizes locally tracked build records,
// most-recent-first, the order the store lists them in.
func SummarizeRecords(records []store.BuildRecord) []BuildSummary {
	summaries := make([]BuildSummary, 0, len(records))
	for _, r := range records {
		label := shortID(r.BuildID)
		if r.BuildNumber != nil {
			label = fmt.Sprintf("#%d", *r.BuildNumber)
		}
		summaries = append(summaries, BuildSummary{
			Label:     label,
			Status:    r.Status,
			Duration:  r.Duration,
			Timestamp: r.CreatedOn,
		})
	}
	return summaries
}

// SummarizeJenkinsBuilds normalizes the raw builds-list shape: `building`
// wins over `result`, and the source's FAILURE result maps onto the local
// FAILED status. Unrecognized results pass through verbatim.
func SummarizeJenkinsBuilds(builds []jenkins.Build) []BuildSummary {
	summaries := make([]BuildSummary, 0, len(builds))
	for _, b := range builds {
		summaries = append(summaries, BuildSummary{
			Label:     fmt.Sprintf("#%d", b.Number),
			Status:    normalizeResult(b),
			Duration:  b.Duration,
			Timestamp: time.UnixMilli(b.Timestamp),
		})
	}
	return summaries
}

func normalizeResult(b jenkins.Build) store.BuildStatus {
	if b.Building {
		return store.StatusRunning
	}
	switch b.Result {
	case "SUCCESS":
		return store.StatusSuccess
	case "FAILURE":
		return store.StatusFailed
	case "ABORTED":
		return store.StatusAborted
	case "":
		return "UNKNOWN"
	default:
		return store.BuildStatus(b.Result)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return "#" + id[:8]
	}
	return "#" + id
}

type Stats struct {
	Total       int   `json:"total"`
	Success     int   `json:"success"`
	Failed      int   `json:"failed"`
	Running     int   `json:"running"`
	AvgDuration int64 `json:"avgDuration"` // whole seconds
	SuccessRate int   `json:"successRate"` // percent
}

// CalculateStats is a pure function of a summary snapshot. An empty
// snapshot yields all zeroes.
func CalculateStats(summaries []BuildSummary) Stats {
	stats := Stats{Total: len(summaries)}
	var totalDuration int64
	for _, s := range summaries {
		switch s.Status {
		case store.StatusSuccess:
			stats.Success++
		case store.StatusFailed:
			stats.Failed++
		case store.StatusRunning:
			stats.Running++
		}
		totalDuration += s.Duration
	}
	if stats.Total > 0 {
		stats.AvgDuration = int64(math.Round(
			float64(totalDuration) / float64(stats.Total) / 1000,
		))
		stats.SuccessRate = int(math.Round(
			float64(stats.Success) / float64(stats.Total) * 100,
		))
	}
	return stats
}

type TrendPoint struct {
	Label           string `json:"build"`
	DurationSeconds int64  `json:"duration"`
	Success         int    `json:"status"` // 1 for SUCCESS, else 0
}

// TrendSeries maps the n most recent summaries to chart points in
// chronologically ascending order. Summaries are expected
// most-recent-first.
func TrendSeries(summaries []BuildSummary, n int) []TrendPoint {
	if n <= 0 {
		n = DefaultTrendSize
	}
	recent := slices.Clone(summaries[:min(n, len(summaries))])
	slices.Reverse(recent)

	points := make([]TrendPoint, 0, len(recent))
	for _, s := range recent {
		success := 0
		if s.Status == store.StatusSuccess {
			success = 1
		}
		points = append(points, TrendPoint{
			Label:           s.Label,
			DurationSeconds: int64(math.Round(float64(s.Duration) / 1000)),
			Success:         success,
		})
	}
	return points
}

type HourCount struct {
	Hour  int    `json:"-"`
	Label string `json:"hour"`
	Count int    `json:"builds"`
}

// HourlyHistogram buckets summaries by the hour-of-day of their timestamp
// and returns counts sorted by hour ascending.
func HourlyHistogram(summaries []BuildSummary) []HourCount {
	counts := make(map[int]int)
	for _, s := range summaries {
		counts[s.Timestamp.Hour()]++
	}

	histogram := make([]HourCount, 0, len(counts))
	for hour, count := range counts {
		histogram = append(histogram, HourCount{
			Hour:  hour,
			Label: fmt.Sprintf("%d:00", hour),
			Count: count,
		})
	}
	slices.SortFunc(histogram, func(a, b HourCount) int {
		return a.Hour - b.Hour
	})
	return histogram
}
