package service

import (
	"context"
	"strings"

	"buildwatch/internal/store"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// StatusFilterAll matches every record in FilterBuilds.
const StatusFilterAll = "ALL"

type BuildService struct {
	api        BuildManagerAPI
	history    store.HistoryStore
	reconciler *Reconciler
	clock      clockwork.Clock
}

func NewBuildService(
	api BuildManagerAPI,
	history store.HistoryStore,
	reconciler *Reconciler,
	clock clockwork.Clock,
) *BuildService {
	return &BuildService{
		api:        api,
		history:    history,
		reconciler: reconciler,
		clock:      clock,
	}
}

// TriggerBuild asks the build-manager API to start a build and, only on
// success, appends a QUEUED record and starts its polling loop. A trigger
// failure creates no record and is not retried.
func (s *BuildService) TriggerBuild(
	ctx context.Context,
	repoURL, branch string,
) (*store.BuildRecord, error) {
	if strings.TrimSpace(repoURL) == "" {
		return nil, NewErrMissingRepoURL()
	}
	if branch == "" {
		branch = "main"
	}

	result, err := s.api.TriggerBuild(ctx, repoURL)
	if err != nil {
		return nil, err
	}

	r := &store.BuildRecord{
		BuildID:   uuid.NewString(),
		JobName:   result.JobName,
		RepoURL:   repoURL,
		Branch:    branch,
		Status:    store.StatusQueued,
		StartTime: s.clock.Now().UnixMilli(),
		Duration:  0,
		Tags:      store.Tags{},
		Notes:     "",
	}
	if err := s.history.AppendBuild(ctx, r); err != nil {
		return nil, err
	}
	if err := s.reconciler.StartPolling(r.BuildID, r.JobName); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *BuildService) ListBuilds(ctx context.Context) ([]store.BuildRecord, error) {
	return s.history.ListBuilds(ctx)
}

// UpdateTags and UpdateNotes are the user-edit side of the merge: they
// replace a single field against the latest stored row and never touch
// status or duration, so they cannot clobber a concurrent poll.
func (s *BuildService) UpdateTags(ctx context.Context, buildID string, tags []string) error {
	return s.history.UpdateTags(ctx, buildID, tags)
}

func (s *BuildService) UpdateNotes(ctx context.Context, buildID, notes string) error {
	return s.history.UpdateNotes(ctx, buildID, notes)
}

// FilterBuilds narrows a history snapshot by a case-insensitive repository
// substring and an exact status, the dashboard's search box and filter
// buttons. An empty query matches everything, as does StatusFilterAll.
func FilterBuilds(
	records []store.BuildRecord,
	query, statusFilter string,
) []store.BuildRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	filtered := make([]store.BuildRecord, 0, len(records))
	for _, r := range records {
		if query != "" && !strings.Contains(strings.ToLower(r.RepoURL), query) {
			continue
		}
		if statusFilter != "" && statusFilter != StatusFilterAll &&
			r.Status != store.BuildStatus(statusFilter) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
