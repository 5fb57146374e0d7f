package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envswitch/internal/store"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func TestRecordAndListRuns(t *testing.T) {
	s := openStore(t)
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	_, err := s.RecordRun(store.Run{
		Mode: "dev", Status: "ok", StartedAt: start, FinishedAt: start.Add(time.Second),
		Steps: []store.StepRecord{
			{Name: "env", Status: "ok", Policy: "abort", Digest: "abc"},
			{Name: "git", Status: "fail", Policy: "continue", Message: "push rejected"},
		},
	})
	require.NoError(t, err)

	id, err := s.RecordRun(store.Run{Mode: "prod", Status: "fail", Error: "nginx: reload", StartedAt: start.Add(time.Minute), FinishedAt: start.Add(2 * time.Minute), DryRun: true})
	require.NoError(t, err)

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "prod", runs[0].Mode)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, "nginx: reload", runs[0].Error)
	assert.Empty(t, runs[0].Steps)

	assert.Equal(t, "dev", runs[1].Mode)
	assert.True(t, runs[1].StartedAt.Equal(start))
	require.Len(t, runs[1].Steps, 2)
	assert.Equal(t, "env", runs[1].Steps[0].Name)
	assert.Equal(t, "abc", runs[1].Steps[0].Digest)
	assert.Equal(t, "push rejected", runs[1].Steps[1].Message)

	limited, err := s.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordRunValidates(t *testing.T) {
	s := openStore(t)
	_, err := s.RecordRun(store.Run{Status: "ok"})
	require.Error(t, err)
	_, err = s.RecordRun(store.Run{Mode: "dev"})
	require.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Migrate())
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
