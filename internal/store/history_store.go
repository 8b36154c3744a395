package store

import (
	"context"
)

type HistoryStore interface {
	AppendBuild(context.Context, *BuildRecord) error
	ReadBuildByID(context.Context, string) (*BuildRecord, error)
	ListBuilds(context.Context) ([]BuildRecord, error)
	ListActiveBuilds(context.Context) ([]BuildRecord, error)
	UpdateStatus(context.Context, string, BuildStatus, int64) error
	UpdateBuildNumber(context.Context, string, int64) error
	UpdateTags(context.Context, string, []string) error
	UpdateNotes(context.Context, string, string) error
}
