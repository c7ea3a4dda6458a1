package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CheckReportsVersion(t *testing.T) {
	m := NewManager(memoryConfig("check_reports_version"), WithLogger(quietLogger))
	defer m.Release(context.Background())

	res, err := m.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", res.Dialect)
	assert.NotEmpty(t, res.Version)
	assert.Equal(t, StateConnected, m.State())
}

func TestManager_CheckSurfacesConnectFailure(t *testing.T) {
	o := &countingOpener{err: assert.AnError}
	m := newTestManager(t, o)

	_, err := m.Check(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.ErrorIs(t, err, assert.AnError)
}
