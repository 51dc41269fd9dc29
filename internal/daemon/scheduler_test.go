package daemon

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/workspace"
)

func TestScheduler_ScheduleEvery(t *testing.T) {
	t.Run("returns job id for valid interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop(context.Background()) })

		id, err := s.ScheduleEvery("test", 10*time.Second, func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop(context.Background()) })

		_, err = s.ScheduleEvery("test", 0, func() {})
		require.Error(t, err)
	})

	t.Run("runs the task", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop(context.Background()) })

		var runs atomic.Int32
		_, err = s.ScheduleEvery("tick", 20*time.Millisecond, func() { runs.Add(1) })
		require.NoError(t, err)
		s.Start(context.Background())

		require.Eventually(t, func() bool { return runs.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
	})
}

func TestScheduler_WorkspaceSweep(t *testing.T) {
	m := workspace.NewManager(t.TempDir())
	ws, err := m.Create("abandoned")
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(ws.Path(), old, old))

	fresh, err := m.Create("fresh")
	require.NoError(t, err)

	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	_, err = s.ScheduleWorkspaceSweep(m, 20*time.Millisecond, time.Hour)
	require.NoError(t, err)
	s.Start(context.Background())

	require.Eventually(t, func() bool {
		_, err := os.Stat(ws.Path())
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	_, err = os.Stat(fresh.Path())
	assert.NoError(t, err)
}
