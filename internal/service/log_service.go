package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LogClass is the presentation bucket a log line falls into. It carries
// no state; the viewer only uses it to pick a color.
type LogClass string

const (
	LogClassError   LogClass = "error"
	LogClassSuccess LogClass = "success"
	LogClassWarning LogClass = "warning"
	LogClassDefault LogClass = "default"
)

// ClassifyLine buckets a line by case-insensitive substring match.
func ClassifyLine(line string) LogClass {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "failed"):
		return LogClassError
	case strings.Contains(lower, "success") || strings.Contains(lower, "finished"):
		return LogClassSuccess
	case strings.Contains(lower, "warning"):
		return LogClassWarning
	default:
		return LogClassDefault
	}
}

type LogService struct {
	api BuildManagerAPI
}

func NewLogService(api BuildManagerAPI) *LogService {
	return &LogService{api: api}
}

// FetchLogs always returns renderable text: a fetch failure becomes a
// single log line carrying the error, never a propagated error.
func (s *LogService) FetchLogs(ctx context.Context, jobName string, buildNumber int64) string {
	logs, err := s.api.GetBuildLogs(ctx, jobName, buildNumber)
	if err != nil {
		return "Error fetching logs: " + err.Error()
	}
	if logs == "" {
		return "No logs available"
	}
	return logs
}

func LogFilename(jobName string, buildNumber int64) string {
	return fmt.Sprintf("%s-build-%d.log", jobName, buildNumber)
}

// SaveLogs fetches a build's logs and writes them next to dir under the
// conventional download filename, returning the written path.
func (s *LogService) SaveLogs(
	ctx context.Context,
	jobName string,
	buildNumber int64,
	dir string,
) (string, error) {
	logs := s.FetchLogs(ctx, jobName, buildNumber)
	path := filepath.Join(dir, LogFilename(jobName, buildNumber))
	if err := os.WriteFile(path, []byte(logs), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
