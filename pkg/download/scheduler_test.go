package download

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matshelf/matshelf/pkg/errors"
)

// fakeFetcher resolves units according to a per-filename script.
type fakeFetcher struct {
	mu    sync.Mutex
	order []string
	fail  map[string]error // error returned per attempt; nil means success
	block chan struct{}    // when set, transfers wait here
}

func (f *fakeFetcher) DownloadFile(_ context.Context, file *FileDownload) error {
	if !file.MarkOngoing() {
		return nil
	}
	f.mu.Lock()
	f.order = append(f.order, file.Filename)
	err := f.fail[file.Filename]
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if err != nil {
		return err
	}
	file.AddBytes(file.SizeExpected)
	file.MarkDone()
	return nil
}

func (f *fakeFetcher) attempts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func TestScheduleRunsAscendingBySize(t *testing.T) {
	fetcher := &fakeFetcher{}
	files := []*FileDownload{
		NewFileDownload("u", "big.jpg", t.TempDir(), 300),
		NewFileDownload("u", "small.jpg", t.TempDir(), 10),
		NewFileDownload("u", "mid.jpg", t.TempDir(), 100),
	}

	// A single worker makes the submission order observable.
	s := NewScheduler(fetcher, 1)
	s.Schedule(context.Background(), files)
	s.Wait()

	assert.Equal(t, []string{"small.jpg", "mid.jpg", "big.jpg"}, fetcher.attempts())

	allDone, anyError, downloaded, err := s.Check()
	assert.True(t, allDone)
	assert.False(t, anyError)
	assert.Equal(t, int64(410), downloaded)
	assert.NoError(t, err)
}

func TestScheduleSkipsFinishedUnits(t *testing.T) {
	fetcher := &fakeFetcher{}
	done := NewFileDownload("u", "done.jpg", t.TempDir(), 50)
	done.MarkWaiting()
	require.True(t, done.MarkOngoing())
	done.SetDownloaded(50)
	done.MarkDone()
	pending := NewFileDownload("u", "pending.jpg", t.TempDir(), 10)

	s := NewScheduler(fetcher, 2)
	s.Schedule(context.Background(), []*FileDownload{done, pending})
	s.Wait()

	assert.Equal(t, []string{"pending.jpg"}, fetcher.attempts())
	allDone, _, downloaded, _ := s.Check()
	assert.True(t, allDone)
	assert.Equal(t, int64(60), downloaded)
}

func TestCheckReportsFirstError(t *testing.T) {
	boom := errors.Wrap(errors.ErrNoSpace, "write")
	fetcher := &fakeFetcher{fail: map[string]error{"bad.jpg": boom}}
	files := []*FileDownload{
		NewFileDownload("u", "bad.jpg", t.TempDir(), 10),
		NewFileDownload("u", "good.jpg", t.TempDir(), 20),
	}

	s := NewScheduler(fetcher, 2)
	s.Schedule(context.Background(), files)
	s.Wait()

	_, anyError, _, err := s.Check()
	assert.True(t, anyError)
	assert.ErrorIs(t, err, errors.ErrNoSpace)
}

func TestRetryableErrorsConsumeFileBudget(t *testing.T) {
	flaky := errors.Wrap(errors.ErrConnection, "reset")
	fetcher := &fakeFetcher{fail: map[string]error{"flaky.jpg": flaky}}
	file := NewFileDownload("u", "flaky.jpg", t.TempDir(), 10)

	s := NewScheduler(fetcher, 1)
	s.Schedule(context.Background(), []*FileDownload{file})
	s.Wait()

	// All three attempts used, then the unit fails.
	assert.Len(t, fetcher.attempts(), MaxRetriesPerFile)
	assert.Equal(t, StatusError, file.Status())
	assert.ErrorIs(t, file.Err(), errors.ErrConnection)
}

func TestNonRetryableErrorFailsImmediately(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]error{"full.jpg": errors.ErrNoSpace}}
	file := NewFileDownload("u", "full.jpg", t.TempDir(), 10)

	s := NewScheduler(fetcher, 1)
	s.Schedule(context.Background(), []*FileDownload{file})
	s.Wait()

	assert.Len(t, fetcher.attempts(), 1)
	assert.Equal(t, StatusError, file.Status())
}

func TestCancelBeforeStartTransfersNothing(t *testing.T) {
	fetcher := &fakeFetcher{}
	files := []*FileDownload{
		NewFileDownload("u", "a.jpg", t.TempDir(), 10),
		NewFileDownload("u", "b.jpg", t.TempDir(), 20),
	}

	s := NewScheduler(fetcher, 2)
	s.Cancel()
	s.Schedule(context.Background(), files)
	s.Wait()

	assert.Empty(t, fetcher.attempts())
	for _, file := range files {
		assert.Equal(t, StatusCancelled, file.Status())
		assert.Zero(t, file.Downloaded())
	}
	_, anyError, downloaded, err := s.Check()
	assert.True(t, anyError)
	assert.Zero(t, downloaded)
	assert.ErrorIs(t, err, errors.ErrUserCancelled)
}

func TestCancelConcurrentWithSchedule(t *testing.T) {
	// Cancel may land at any point of Schedule's setup; whichever wins,
	// every unit must end terminal and no worker may outlive Cancel+Wait.
	for i := 0; i < 50; i++ {
		fetcher := &fakeFetcher{}
		files := []*FileDownload{
			NewFileDownload("u", "a.jpg", t.TempDir(), 10),
			NewFileDownload("u", "b.jpg", t.TempDir(), 20),
		}
		s := NewScheduler(fetcher, 2)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Cancel()
		}()
		s.Schedule(context.Background(), files)
		wg.Wait()
		s.Wait()

		for _, file := range files {
			status := file.Status()
			assert.True(t, status == StatusDone || status == StatusCancelled,
				"file %s left in state %v", file.Filename, status)
		}
	}
}

func TestCancelDrainsInFlight(t *testing.T) {
	block := make(chan struct{})
	fetcher := &fakeFetcher{block: block}
	file := NewFileDownload("u", "slow.jpg", t.TempDir(), 10)

	s := NewScheduler(fetcher, 1)
	s.Schedule(context.Background(), []*FileDownload{file})

	// Wait for the worker to pick the unit up, then cancel while it blocks.
	require.Eventually(t, func() bool {
		return len(fetcher.attempts()) == 1
	}, time.Second, 5*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(block)
	}()
	s.Cancel()
	s.Wait()
}
