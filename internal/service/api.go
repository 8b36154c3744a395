package service

import (
	"context"

	"buildwatch/internal/jenkins"
)

// BuildManagerAPI is the surface of the external build-manager API the
// services depend on. *jenkins.Client satisfies it.
type BuildManagerAPI interface {
	TriggerBuild(ctx context.Context, repoURL string) (*jenkins.TriggerResult, error)
	GetBuildStatus(ctx context.Context, jobName string) (*jenkins.BuildStatus, error)
	GetBuildLogs(ctx context.Context, jobName string, buildNumber int64) (string, error)
	ListBuilds(ctx context.Context, jobName string) ([]jenkins.Build, error)
}
