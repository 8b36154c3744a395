package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"buildwatch/internal/settings"

	"github.com/georgysavva/scany/v2/sqlscan"
)

const (
	KeyDarkMode     = "dark_mode"
	KeyUserSettings = "settings"
)

// KeyValueStore persists small independent blobs: the dark-mode flag and
// the user settings object. Keys are read and written independently, no
// cross-key transaction.
type KeyValueStore struct {
	rdb, rwdb *sql.DB
}

func NewKeyValueStore(rdb, rwdb *sql.DB) *KeyValueStore {
	return &KeyValueStore{rdb, rwdb}
}

func (kvs *KeyValueStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	query := "select value from kvstore where key = $1"
	err := sqlscan.Get(ctx, kvs.rdb, &value, query, key)
	return value, err
}

func (kvs *KeyValueStore) Set(ctx context.Context, key, value string) error {
	query := `insert into kvstore (key, value)
	values ($1, $2)
	on conflict (key) do update set value = excluded.value`
	_, err := kvs.rwdb.ExecContext(ctx, query, key, value)
	return err
}

// ReadDarkMode defaults to true when the flag was never written, matching
// the dashboard's initial appearance.
func (kvs *KeyValueStore) ReadDarkMode(ctx context.Context) (bool, error) {
	value, err := kvs.Get(ctx, KeyDarkMode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return true, err
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true, err
	}
	return enabled, nil
}

func (kvs *KeyValueStore) WriteDarkMode(ctx context.Context, enabled bool) error {
	return kvs.Set(ctx, KeyDarkMode, strconv.FormatBool(enabled))
}

func (kvs *KeyValueStore) ReadUserSettings(ctx context.Context) (settings.UserSettings, error) {
	us := settings.DefaultUserSettings()
	value, err := kvs.Get(ctx, KeyUserSettings)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return us, nil
		}
		return us, err
	}
	if err := json.Unmarshal([]byte(value), &us); err != nil {
		return us, err
	}
	return us, nil
}

func (kvs *KeyValueStore) WriteUserSettings(ctx context.Context, us settings.UserSettings) error {
	b, err := json.Marshal(us)
	if err != nil {
		return err
	}
	return kvs.Set(ctx, KeyUserSettings, string(b))
}
