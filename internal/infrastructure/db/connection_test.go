package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDisabledSkipsConnection(t *testing.T) {
	m, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, m.IsEnabled())
	assert.Nil(t, m.Repository())
}

func TestNewManagerEnabledRequiresDSN(t *testing.T) {
	_, err := NewManager(Config{Enabled: true})
	assert.Error(t, err)
}

func TestDisabledManagerHealthReportsDegradedButHealthy(t *testing.T) {
	m, err := NewManager(DefaultConfig())
	require.NoError(t, err)

	h := m.Health(context.Background())
	assert.True(t, h.Healthy)
	assert.NotEmpty(t, h.Errors)
}

func TestCloseOnDisabledManagerIsNoop(t *testing.T) {
	m, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	assert.NoError(t, m.Close())
}

func TestHealthCheckerEnabledReportsHealthyOnSuccessfulPing(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	h := &healthChecker{enabled: true, db: sqlx.NewDb(mockDB, "sqlmock"), timeout: 5 * time.Second}

	mock.ExpectPing()

	check := h.Health(context.Background())
	assert.True(t, check.Healthy)
	assert.Empty(t, check.Errors)
	assert.GreaterOrEqual(t, check.ResponseTimeMS, int64(0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckerEnabledReportsUnhealthyOnPingFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	h := &healthChecker{enabled: true, db: sqlx.NewDb(mockDB, "sqlmock"), timeout: 5 * time.Second}

	mock.ExpectPing().WillReturnError(sqlmock.ErrCancelled)

	check := h.Health(context.Background())
	assert.False(t, check.Healthy)
	require.Len(t, check.Errors, 1)
	assert.Contains(t, check.Errors[0], "ping failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckerEnabledReportsConnectionPoolStats(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	h := &healthChecker{enabled: true, db: sqlx.NewDb(mockDB, "sqlmock"), timeout: 5 * time.Second}

	mock.ExpectPing()

	check := h.Health(context.Background())
	assert.Contains(t, check.ConnectionPool, "max_open")
	assert.Contains(t, check.ConnectionPool, "open")
	assert.Contains(t, check.ConnectionPool, "in_use")
	assert.Contains(t, check.ConnectionPool, "idle")
	assert.Contains(t, check.ConnectionPool, "wait_count")
	assert.Contains(t, check.ConnectionPool, "wait_duration")
}
