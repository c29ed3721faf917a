package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/placescout/placescout/internal/scout"
)

func newRun(id string) scout.Run {
	return scout.Run{
		ID:        id,
		Params:    scout.RunParameters{Query: "coffee"},
		Status:    scout.RunStatusQueued,
		StartedAt: time.Now().UTC(),
	}
}

func TestRunStore_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewRunStore()

	require.NoError(t, s.CreateRun(ctx, newRun("r1")))
	require.Error(t, s.CreateRun(ctx, newRun("r1")))

	require.NoError(t, s.UpdateRunStatus(ctx, "r1", scout.RunStatusRunning, ""))
	run, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, scout.RunStatusRunning, run.Status)

	result := &scout.RunResult{TotalResults: 2, Records: make([]scout.EntityRecord, 2)}
	require.NoError(t, s.CompleteRun(ctx, "r1", scout.RunStatusSucceeded, "", result, 3*time.Second))

	run, err = s.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, scout.RunStatusSucceeded, run.Status)
	require.NotNil(t, run.FinishedAt)
	require.Equal(t, int64(3000), run.DurationMs)
	require.Equal(t, 2, run.ResultCount)

	got, err := s.GetRunResult(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, result, got)
}

func TestRunStore_UnknownRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewRunStore()

	_, err := s.GetRun(ctx, "nope")
	require.ErrorIs(t, err, scout.ErrRunNotFound)
	require.ErrorIs(t, s.UpdateRunStatus(ctx, "nope", scout.RunStatusRunning, ""), scout.ErrRunNotFound)
	require.ErrorIs(t, s.CompleteRun(ctx, "nope", scout.RunStatusFailed, "x", nil, 0), scout.ErrRunNotFound)
	_, err = s.GetRunResult(ctx, "nope")
	require.ErrorIs(t, err, scout.ErrRunNotFound)
}

func TestRunStore_ResultPendingIsNil(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewRunStore()
	require.NoError(t, s.CreateRun(ctx, newRun("r1")))

	got, err := s.GetRunResult(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewRunStore()
	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, s.CreateRun(ctx, newRun(id)))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "r3", runs[0].ID)
	require.Equal(t, "r2", runs[1].ID)

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
