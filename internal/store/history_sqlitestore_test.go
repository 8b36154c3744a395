package store

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"testing"

	"buildwatch/internal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type historySQLiteStoreSuite struct {
	historyStore *HistorySQLiteStore
	db           *sql.DB
	suite.Suite
}

func TestHistorySQLiteStore(t *testing.T) {
	suite.Run(t, new(historySQLiteStoreSuite))
}

func (suite *historySQLiteStoreSuite) SetupSuite() {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	suite.db = db
	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	if err != nil {
		log.Fatal(err)
	}

	RunMigrations(db, internal.MigrationsDir)

	suite.historyStore = NewHistorySQLiteStore(db, db)
}

func (suite *historySQLiteStoreSuite) TearDownSuite() {
	_ = suite.db.Close()
}

func (suite *historySQLiteStoreSuite) newQueuedBuild(repoURL string) *BuildRecord {
	r := &BuildRecord{
		BuildID:   uuid.NewString(),
		JobName:   "Universal-Builder",
		RepoURL:   repoURL,
		Branch:    "main",
		Status:    StatusQueued,
		StartTime: 1700000000000,
		Tags:      Tags{},
	}
	err := suite.historyStore.AppendBuild(context.Background(), r)
	suite.Require().NoError(err)
	return r
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_AppendBuild() {
	suite.Run("success - build appended", func() {
		// arrange
		r := &BuildRecord{
			BuildID:   uuid.NewString(),
			JobName:   "Universal-Builder",
			RepoURL:   "https://github.com/x/y",
			Branch:    "main",
			Status:    StatusQueued,
			StartTime: 1700000000000,
			Tags:      Tags{},
		}

		// act
		err := suite.historyStore.AppendBuild(context.Background(), r)

		// assert
		suite.NoError(err)
		suite.False(r.CreatedOn.IsZero())

		read, err := suite.historyStore.ReadBuildByID(context.Background(), r.BuildID)
		suite.NoError(err)
		suite.Equal(StatusQueued, read.Status)
		suite.Equal(int64(0), read.Duration)
		suite.Nil(read.BuildNumber)
		suite.Equal(Tags{}, read.Tags)
	})
	suite.Run("failure - duplicate build id", func() {
		// arrange
		r := suite.newQueuedBuild("https://github.com/x/dup")
		dup := *r

		// act
		err := suite.historyStore.AppendBuild(context.Background(), &dup)

		// assert
		suite.Error(err)
		var dupErr ErrDuplicateBuild
		suite.True(errors.As(err, &dupErr))
	})
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_ReadBuildByID() {
	suite.Run("success - build is found", func() {
		// arrange
		expected := suite.newQueuedBuild("https://github.com/x/read")

		// act
		r, err := suite.historyStore.ReadBuildByID(context.Background(), expected.BuildID)

		// assert
		suite.NoError(err)
		suite.Equal(expected.RepoURL, r.RepoURL)
		suite.Equal(expected.Status, r.Status)
	})
	suite.Run("failure - build is not found", func() {
		// act
		r, err := suite.historyStore.ReadBuildByID(context.Background(), uuid.NewString())

		// assert
		suite.Error(err)
		suite.True(errors.Is(err, sql.ErrNoRows))
		suite.Nil(r)
	})
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_ListBuilds() {
	suite.Run("success - most recent first", func() {
		// arrange
		first := suite.newQueuedBuild("https://github.com/x/list-first")
		second := suite.newQueuedBuild("https://github.com/x/list-second")

		// act
		builds, err := suite.historyStore.ListBuilds(context.Background())

		// assert
		suite.NoError(err)
		positions := make(map[string]int)
		for i, b := range builds {
			positions[b.BuildID] = i
		}
		suite.Contains(positions, first.BuildID)
		suite.Contains(positions, second.BuildID)
		suite.Less(positions[second.BuildID], positions[first.BuildID])
	})
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_ListActiveBuilds() {
	suite.Run("success - terminal builds excluded", func() {
		// arrange
		active := suite.newQueuedBuild("https://github.com/x/active")
		done := suite.newQueuedBuild("https://github.com/x/done")
		err := suite.historyStore.UpdateStatus(context.Background(), done.BuildID, StatusSuccess, 4000)
		suite.Require().NoError(err)

		// act
		builds, err := suite.historyStore.ListActiveBuilds(context.Background())

		// assert
		suite.NoError(err)
		ids := make([]string, 0, len(builds))
		for _, b := range builds {
			ids = append(ids, b.BuildID)
		}
		suite.Contains(ids, active.BuildID)
		suite.NotContains(ids, done.BuildID)
	})
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_UpdateStatus() {
	suite.Run("success - status and duration updated, metadata untouched", func() {
		// arrange
		r := suite.newQueuedBuild("https://github.com/x/status")
		err := suite.historyStore.UpdateTags(context.Background(), r.BuildID, []string{"hotfix"})
		suite.Require().NoError(err)

		// act
		err = suite.historyStore.UpdateStatus(context.Background(), r.BuildID, StatusRunning, 2500)

		// assert
		suite.NoError(err)
		read, err := suite.historyStore.ReadBuildByID(context.Background(), r.BuildID)
		suite.NoError(err)
		suite.Equal(StatusRunning, read.Status)
		suite.Equal(int64(2500), read.Duration)
		suite.Equal(Tags{"hotfix"}, read.Tags)
	})
	suite.Run("success - terminal status is absorbing and freezes duration", func() {
		// arrange
		r := suite.newQueuedBuild("https://github.com/x/terminal")
		err := suite.historyStore.UpdateStatus(context.Background(), r.BuildID, StatusSuccess, 5000)
		suite.Require().NoError(err)

		// act
		err = suite.historyStore.UpdateStatus(context.Background(), r.BuildID, StatusRunning, 9999)
		suite.NoError(err)
		err = suite.historyStore.UpdateStatus(context.Background(), r.BuildID, StatusFailed, 1)
		suite.NoError(err)

		// assert
		read, err := suite.historyStore.ReadBuildByID(context.Background(), r.BuildID)
		suite.NoError(err)
		suite.Equal(StatusSuccess, read.Status)
		suite.Equal(int64(5000), read.Duration)
	})
	suite.Run("success - unknown id is a no-op", func() {
		// act
		err := suite.historyStore.UpdateStatus(context.Background(), uuid.NewString(), StatusRunning, 100)

		// assert
		suite.NoError(err)
	})
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_UpdateBuildNumber() {
	suite.Run("success - build number written once", func() {
		// arrange
		r := suite.newQueuedBuild("https://github.com/x/number")

		// act
		err := suite.historyStore.UpdateBuildNumber(context.Background(), r.BuildID, 42)
		suite.NoError(err)
		err = suite.historyStore.UpdateBuildNumber(context.Background(), r.BuildID, 99)
		suite.NoError(err)

		// assert
		read, err := suite.historyStore.ReadBuildByID(context.Background(), r.BuildID)
		suite.NoError(err)
		suite.NotNil(read.BuildNumber)
		suite.Equal(int64(42), *read.BuildNumber)
	})
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_UpdateTagsAndNotes() {
	suite.Run("success - field-wise last write wins across interleavings", func() {
		// arrange
		r := suite.newQueuedBuild("https://github.com/x/merge")

		// act: interleave metadata edits with status updates
		suite.NoError(suite.historyStore.UpdateTags(context.Background(), r.BuildID, []string{"hotfix"}))
		suite.NoError(suite.historyStore.UpdateStatus(context.Background(), r.BuildID, StatusRunning, 1200))
		suite.NoError(suite.historyStore.UpdateNotes(context.Background(), r.BuildID, "flaky test retried"))
		suite.NoError(suite.historyStore.UpdateTags(context.Background(), r.BuildID, []string{"hotfix", "release"}))
		suite.NoError(suite.historyStore.UpdateStatus(context.Background(), r.BuildID, StatusSuccess, 8000))

		// assert: every field holds its own last write
		read, err := suite.historyStore.ReadBuildByID(context.Background(), r.BuildID)
		suite.NoError(err)
		suite.Equal(StatusSuccess, read.Status)
		suite.Equal(int64(8000), read.Duration)
		suite.Equal(Tags{"hotfix", "release"}, read.Tags)
		suite.Equal("flaky test retried", read.Notes)
	})
	suite.Run("success - unknown id is a no-op", func() {
		// act
		tagsErr := suite.historyStore.UpdateTags(context.Background(), uuid.NewString(), []string{"x"})
		notesErr := suite.historyStore.UpdateNotes(context.Background(), uuid.NewString(), "x")

		// assert
		suite.NoError(tagsErr)
		suite.NoError(notesErr)
	})
}
