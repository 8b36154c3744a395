package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type BuildStatus string

const (
	StatusQueued  BuildStatus = "QUEUED"
	StatusRunning BuildStatus = "RUNNING"
	StatusSuccess BuildStatus = "SUCCESS"
	StatusFailed  BuildStatus = "FAILED"
	StatusAborted BuildStatus = "ABORTED"
)

// Terminal reports whether a status is absorbing: once a build reaches it,
// no further transitions are applied and its duration is frozen.
func (s BuildStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// Tags is an ordered list of short labels. Insertion order is preserved
// for display; duplicates are allowed. Stored as a JSON array column.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), t)
	case []byte:
		return json.Unmarshal(v, t)
	case nil:
		*t = Tags{}
		return nil
	default:
		return fmt.Errorf("unsupported tags column type %T", src)
	}
}

// BuildRecord is one tracked invocation of the external build pipeline.
// RepoURL, Branch and StartTime are set at trigger time and never change;
// BuildNumber is written once when the external system assigns it.
type BuildRecord struct {
	BuildID     string
	JobName     string
	BuildNumber *int64
	RepoURL     string
	Branch      string
	Status      BuildStatus
	StartTime   int64 // trigger time, unix milliseconds
	Duration    int64 // milliseconds, estimated while running, frozen on terminal
	Tags        Tags
	Notes       string
	CreatedOn   time.Time
}
