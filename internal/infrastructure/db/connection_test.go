package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/almrun/internal/persistence"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 10, config.MaxOpenConns)
	assert.Equal(t, 5, config.MaxIdleConns)
	assert.Equal(t, 30*time.Second, config.QueryTimeout)
	assert.False(t, config.Enabled)
}

func TestNewManager_Disabled(t *testing.T) {
	manager, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, manager.IsEnabled())
	assert.Nil(t, manager.Repository())
	assert.NoError(t, manager.Close())

	check := manager.Health().Health(context.Background())
	assert.True(t, check.Healthy)
	assert.Contains(t, check.Errors[0], "disabled")
	assert.NoError(t, manager.Health().Ping(context.Background()))
}

func TestNewManager_MissingDSN(t *testing.T) {
	_, err := NewManager(Config{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestNewManager_MigratesSchema(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS path_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPing()

	config := DefaultConfig()
	config.Enabled = true
	manager, err := newManager(sqlx.NewDb(mockDB, "postgres"), config)
	require.NoError(t, err)
	require.NotNil(t, manager.Repository().Paths)
	assert.True(t, manager.IsEnabled())

	check := manager.Health().Health(context.Background())
	assert.True(t, check.Healthy)
	assert.Empty(t, check.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthChecker_PingFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	h := &healthChecker{enabled: true, db: sqlx.NewDb(mockDB, "postgres"), timeout: 5 * time.Second}
	mock.ExpectPing().WillReturnError(sqlmock.ErrCancelled)

	check := h.Health(context.Background())
	assert.False(t, check.Healthy)
	require.Len(t, check.Errors, 1)
	assert.Contains(t, check.Errors[0], "ping failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

type failingSink struct{ calls int }

func (f *failingSink) Write(context.Context, []persistence.Row) error {
	f.calls++
	return errors.New("database down")
}

func TestPathStore_FileAndDatabase(t *testing.T) {
	dir := t.TempDir()
	dbSink := &failingSink{}
	store := NewPathStore(dir, dbSink)

	rows := []persistence.Row{
		{RunID: "run-7", Scenario: "base", Path: 1, Kind: persistence.KindAggregate, Key: "aggregate", Timestep: 0, Fields: map[string]float64{"equity": 5}},
		{RunID: "run-7", Scenario: "base", Path: 1, Kind: persistence.KindAggregate, Key: "aggregate", Timestep: 1, Fields: map[string]float64{"equity": 6}},
	}

	require.NoError(t, store.Write(context.Background(), rows), "database failure is not fatal")
	require.NoError(t, store.Write(context.Background(), rows[:1]))
	assert.Equal(t, 2, dbSink.calls)

	got, err := store.ReadFile("run-7")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 6.0, got[1].Fields["equity"])
}
