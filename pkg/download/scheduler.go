package download

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/errors"
)

// CancelDrainTimeout bounds how long Cancel waits for in-flight transfers to
// wind down before giving up on a clean drain.
const CancelDrainTimeout = 60 * time.Second

// Scheduler runs the file transfers of one asset download over a bounded
// worker pool. A scheduler is single-use: Schedule once, poll Check, then
// either the transfers finish or Cancel tears them down.
type Scheduler struct {
	fetcher FileFetcher
	workers int

	mu        sync.Mutex
	files     []*FileDownload
	queue     chan *FileDownload
	wg        sync.WaitGroup
	cancelled atomic.Bool
	started   bool
}

// NewScheduler creates a scheduler that runs at most workers transfers in
// parallel.
func NewScheduler(fetcher FileFetcher, workers int) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{fetcher: fetcher, workers: workers}
}

// Schedule queues the given units and starts the workers. Units are
// submitted in ascending expected-size order so the small files finish early
// and progress becomes visible quickly. Already finished units are skipped.
// Schedule returns immediately. A scheduler that was cancelled before
// Schedule marks every unit cancelled and starts nothing.
func (s *Scheduler) Schedule(ctx context.Context, files []*FileDownload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files

	if s.cancelled.Load() {
		for _, file := range files {
			file.MarkCancelled()
		}
		return
	}

	pending := make([]*FileDownload, 0, len(files))
	for _, file := range files {
		if file.Status() == StatusDone {
			continue
		}
		file.MarkWaiting()
		pending = append(pending, file)
	}
	slices.SortStableFunc(pending, func(a, b *FileDownload) int {
		switch {
		case a.SizeExpected < b.SizeExpected:
			return -1
		case a.SizeExpected > b.SizeExpected:
			return 1
		default:
			return 0
		}
	})

	s.queue = make(chan *FileDownload, len(pending))
	for _, file := range pending {
		s.queue <- file
	}
	close(s.queue)

	workers := min(s.workers, len(pending))
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	s.started = true
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for file := range s.queue {
		if s.cancelled.Load() || ctx.Err() != nil {
			file.MarkCancelled()
			continue
		}
		s.run(ctx, file)
	}
}

// run drives one unit through its per-file retry budget.
func (s *Scheduler) run(ctx context.Context, file *FileDownload) {
	for {
		err := s.fetcher.DownloadFile(ctx, file)
		if err == nil {
			return
		}
		if s.cancelled.Load() || file.Cancelled() {
			file.MarkCancelled()
			return
		}
		if errors.Retryable(err) && file.ConsumeRetry() {
			logger.WarnfWithFields(logger.Fields{
				"file":  file.Filename,
				"error": err.Error(),
			}, "retrying file download")
			continue
		}
		file.MarkError(err)
		return
	}
}

// Check reports the aggregate transfer state: whether every unit finished
// successfully, whether any unit failed, the bytes downloaded so far and the
// first error encountered. The scan stops at the first failed unit; one
// failure fails the asset regardless of the rest.
func (s *Scheduler) Check() (allDone bool, anyError bool, downloaded int64, firstErr error) {
	s.mu.Lock()
	files := s.files
	s.mu.Unlock()

	allDone = true
	for _, file := range files {
		downloaded += file.Downloaded()
		switch file.Status() {
		case StatusError:
			return false, true, downloaded, file.Err()
		case StatusCancelled:
			return false, true, downloaded, errors.ErrUserCancelled
		case StatusDone:
		default:
			allDone = false
		}
	}
	return allDone, false, downloaded, nil
}

// Cancel flags every pending unit, then waits for in-flight transfers to
// drain. The drain is bounded; exceeding it is abnormal and logged, but
// Cancel still returns so the caller is never wedged on a stuck transfer.
func (s *Scheduler) Cancel() {
	if s.cancelled.Swap(true) {
		return
	}
	// Serializes against a Schedule still setting up; a Schedule that runs
	// after this point sees the cancelled flag and starts nothing.
	s.mu.Lock()
	files := s.files
	started := s.started
	s.mu.Unlock()

	for _, file := range files {
		file.MarkCancelled()
	}
	if !started {
		return
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(CancelDrainTimeout):
		logger.Errorf("download workers did not drain within %s after cancel", CancelDrainTimeout)
	}
}

// Wait blocks until all workers exited. Intended for tests and shutdown
// paths; the orchestrator polls Check instead.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		s.wg.Wait()
	}
}
