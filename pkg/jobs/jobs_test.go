package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRunsJob(t *testing.T) {
	manager := NewManager(2)
	defer manager.Shutdown()

	done := make(chan error, 1)
	ok := manager.Schedule(&Job{
		Type:   TypeGetAssets,
		Run:    func(ctx context.Context) error { return nil },
		OnDone: func(err error) { done <- err },
	})
	require.True(t, ok)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}

	stats := manager.Stats()
	assert.EqualValues(t, 1, stats.Scheduled)
	assert.EqualValues(t, 1, stats.Completed)
	assert.EqualValues(t, 0, stats.Failed)
}

func TestScheduleDeduplicatesInFlight(t *testing.T) {
	manager := NewManager(1)
	defer manager.Shutdown()

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, manager.Schedule(&Job{
		Type: TypeDownloadAsset,
		Key:  "100",
		Run: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started

	// Same type and key while running: dropped.
	assert.False(t, manager.Schedule(&Job{
		Type: TypeDownloadAsset, Key: "100",
		Run: func(ctx context.Context) error { return nil },
	}))
	// Different key is independent work.
	assert.True(t, manager.Schedule(&Job{
		Type: TypeDownloadAsset, Key: "101",
		Run: func(ctx context.Context) error { return nil },
	}))
	// Force bypasses the dedup.
	assert.True(t, manager.Force(&Job{
		Type: TypeDownloadAsset, Key: "100",
		Run: func(ctx context.Context) error { return nil },
	}))

	close(release)
	assert.EqualValues(t, 1, manager.Stats().Ignored)
}

func TestJobFailureCounted(t *testing.T) {
	manager := NewManager(1)
	defer manager.Shutdown()

	done := make(chan error, 1)
	manager.Schedule(&Job{
		Type:   TypeLogin,
		Run:    func(ctx context.Context) error { return assert.AnError },
		OnDone: func(err error) { done <- err },
	})

	err := <-done
	assert.ErrorIs(t, err, assert.AnError)
	assert.EqualValues(t, 1, manager.Stats().Failed)
}

func TestCancelAllHitsRunningJobs(t *testing.T) {
	manager := NewManager(1)
	defer manager.Shutdown()

	started := make(chan struct{})
	done := make(chan error, 1)
	manager.Schedule(&Job{
		Type: TypeDownloadAsset,
		Key:  "100",
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
		OnDone: func(err error) { done <- err },
	})
	<-started

	manager.CancelAll()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("job did not observe cancellation")
	}

	// The manager accepts fresh work with a live context afterwards.
	fresh := make(chan error, 1)
	require.True(t, manager.Schedule(&Job{
		Type:   TypeGetAssets,
		Run:    func(ctx context.Context) error { return ctx.Err() },
		OnDone: func(err error) { fresh <- err },
	}))
	assert.NoError(t, <-fresh)
}

func TestShutdownDrainsQueue(t *testing.T) {
	manager := NewManager(2)

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		manager.Force(&Job{
			Type: TypeDownloadThumb,
			Run: func(ctx context.Context) error {
				ran.Add(1)
				return nil
			},
			OnDone: func(err error) { wg.Done() },
		})
	}
	manager.Shutdown()
	wg.Wait()

	assert.EqualValues(t, 10, ran.Load())
	// Scheduling after shutdown is refused.
	assert.False(t, manager.Schedule(&Job{
		Type: TypeGetAssets,
		Run:  func(ctx context.Context) error { return nil },
	}))
}
