package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/georgysavva/scany/v2/sqlscan"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type HistorySQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewHistorySQLiteStore(rdb, rwdb *sql.DB) *HistorySQLiteStore {
	return &HistorySQLiteStore{rdb, rwdb}
}

type ErrDuplicateBuild struct{}

func (e ErrDuplicateBuild) Error() string {
	return "a build with this id is already tracked"
}

func isUniqueConstraintError(err error) bool {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// AppendBuild inserts a newly triggered build. The caller generates the
// id; a collision means a programming error and surfaces as
// ErrDuplicateBuild.
func (store *HistorySQLiteStore) AppendBuild(ctx context.Context, r *BuildRecord) error {
	query := `insert into builds (
		build_id,
		job_name,
		build_number,
		repo_url,
		branch,
		status,
		start_time,
		duration,
		tags,
		notes
	)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	returning created_on`
	if err := sqlscan.Get(
		ctx, store.rwdb, r, query,
		r.BuildID,
		r.JobName,
		r.BuildNumber,
		r.RepoURL,
		r.Branch,
		r.Status,
		r.StartTime,
		r.Duration,
		r.Tags,
		r.Notes,
	); err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateBuild{}
		}
		return err
	}
	return nil
}

func (store *HistorySQLiteStore) ReadBuildByID(ctx context.Context, id string) (*BuildRecord, error) {
	r := &BuildRecord{BuildID: id}
	query := "select * from builds where build_id = $1"
	if err := sqlscan.Get(ctx, store.rdb, r, query, r.BuildID); err != nil {
		return nil, err
	}
	return r, nil
}

// ListBuilds returns the history most-recent-first, the order the
// dashboard displays and the export writes.
func (store *HistorySQLiteStore) ListBuilds(ctx context.Context) ([]BuildRecord, error) {
	query := `select * from builds
	order by created_on desc, rowid desc`
	builds := make([]BuildRecord, 0)
	err := sqlscan.Select(ctx, store.rdb, &builds, query)
	return builds, err
}

// ListActiveBuilds returns builds that have not reached a terminal status,
// i.e. the ones whose polling loops should be alive.
func (store *HistorySQLiteStore) ListActiveBuilds(ctx context.Context) ([]BuildRecord, error) {
	query := `select * from builds
	where status not in ($1, $2, $3)
	order by created_on desc, rowid desc`
	builds := make([]BuildRecord, 0)
	err := sqlscan.Select(ctx, store.rdb, &builds, query, StatusSuccess, StatusFailed, StatusAborted)
	return builds, err
}

// UpdateStatus replaces status and duration for a build. Rows already in
// a terminal status never match, which makes terminal states absorbing
// and freezes the duration recorded with them. A missing id is a no-op.
func (store *HistorySQLiteStore) UpdateStatus(
	ctx context.Context,
	id string,
	status BuildStatus,
	duration int64,
) error {
	query := `update builds
	set status = $2,
		duration = $3
	where build_id = $1
	and status not in ($4, $5, $6)`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		id,
		status,
		duration,
		StatusSuccess, StatusFailed, StatusAborted,
	)
	return err
}

// UpdateBuildNumber records the number assigned by the external system.
// The guard keeps the first observed number for the lifetime of the record.
func (store *HistorySQLiteStore) UpdateBuildNumber(ctx context.Context, id string, number int64) error {
	query := `update builds
	set build_number = $2
	where build_id = $1
	and build_number is null`
	_, err := store.rwdb.ExecContext(ctx, query, id, number)
	return err
}

func (store *HistorySQLiteStore) UpdateTags(ctx context.Context, id string, tags []string) error {
	query := `update builds
	set tags = $2
	where build_id = $1`
	_, err := store.rwdb.ExecContext(ctx, query, id, Tags(tags))
	return err
}

func (store *HistorySQLiteStore) UpdateNotes(ctx context.Context, id string, notes string) error {
	query := `update builds
	set notes = $2
	where build_id = $1`
	_, err := store.rwdb.ExecContext(ctx, query, id, notes)
	return err
}
