package service

import (
	"context"

	"buildwatch/internal/jenkins"

	"github.com/stretchr/testify/mock"
)

type MockBuildManagerAPI struct {
	mock.Mock
}

func (m *MockBuildManagerAPI) TriggerBuild(
	ctx context.Context,
	repoURL string,
) (*jenkins.TriggerResult, error) {
	args := m.Called(ctx, repoURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jenkins.TriggerResult), args.Error(1)
}

func (m *MockBuildManagerAPI) GetBuildStatus(
	ctx context.Context,
	jobName string,
) (*jenkins.BuildStatus, error) {
	args := m.Called(ctx, jobName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jenkins.BuildStatus), args.Error(1)
}

func (m *MockBuildManagerAPI) GetBuildLogs(
	ctx context.Context,
	jobName string,
	buildNumber int64,
) (string, error) {
	args := m.Called(ctx, jobName, buildNumber)
	return args.String(0), args.Error(1)
}

func (m *MockBuildManagerAPI) ListBuilds(
	ctx context.Context,
	jobName string,
) ([]jenkins.Build, error) {
	args := m.Called(ctx, jobName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]jenkins.Build), args.Error(1)
}
