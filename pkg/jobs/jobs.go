// Package jobs runs background work for the UI-facing layers: API fetches,
// thumbnail downloads and asset downloads all go through one manager so that
// duplicate requests collapse and shutdown drains cleanly.
package jobs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/errors"
)

// Type names a class of background work. Jobs of the same type and key are
// deduplicated while one is still in flight.
type Type string

// Job types.
const (
	TypeLogin         Type = "login"
	TypeGetUserData   Type = "get_user_data"
	TypeGetCategories Type = "get_categories"
	TypeGetAssets     Type = "get_assets"
	TypeDownloadThumb Type = "download_thumb"
	TypePurchaseAsset Type = "purchase_asset"
	TypeDownloadAsset Type = "download_asset"
)

// DefaultWorkers is the number of jobs executed in parallel.
const DefaultWorkers = 4

// Job is one unit of background work. Run receives a context that is
// cancelled by CancelAll and Shutdown; OnDone, when set, fires exactly once
// with Run's result.
type Job struct {
	Type   Type
	Key    string // dedup discriminator, e.g. the asset ID; may be empty
	Run    func(ctx context.Context) error
	OnDone func(err error)

	// ctx is captured at schedule time so CancelAll hits queued jobs too.
	ctx context.Context
}

// dedupKey identifies a job for in-flight deduplication.
func (j *Job) dedupKey() string {
	return string(j.Type) + ":" + j.Key
}

// Stats are cumulative job counters.
type Stats struct {
	Scheduled int64
	Completed int64
	Failed    int64
	Ignored   int64
}

// Manager executes jobs over a fixed worker pool.
type Manager struct {
	queue  chan *Job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inFlight map[string]bool
	closed   bool
	sending  sync.WaitGroup

	scheduled atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	ignored   atomic.Int64
}

// NewManager starts a manager with the given number of workers. Zero or
// negative falls back to DefaultWorkers.
func NewManager(workers int) *Manager {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		queue:    make(chan *Job, 64),
		ctx:      ctx,
		cancel:   cancel,
		inFlight: map[string]bool{},
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for job := range m.queue {
		m.execute(job)
	}
}

func (m *Manager) execute(job *Job) {
	err := job.Run(job.ctx)

	m.mu.Lock()
	delete(m.inFlight, job.dedupKey())
	m.mu.Unlock()

	if err != nil {
		m.failed.Add(1)
		if !errors.Is(err, errors.ErrUserCancelled) && !errors.Is(err, context.Canceled) {
			logger.WarnfWithFields(logger.Fields{
				"job":   string(job.Type),
				"key":   job.Key,
				"error": err.Error(),
			}, "background job failed")
		}
	} else {
		m.completed.Add(1)
	}
	if job.OnDone != nil {
		job.OnDone(err)
	}
}

// Schedule queues a job. A job whose type and key match one still in flight
// is dropped and Schedule reports false; use Force to bypass the dedup.
func (m *Manager) Schedule(job *Job) bool {
	return m.schedule(job, false)
}

// Force queues a job even when an identical one is already in flight.
func (m *Manager) Force(job *Job) bool {
	return m.schedule(job, true)
}

func (m *Manager) schedule(job *Job, force bool) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.ignored.Add(1)
		return false
	}
	key := job.dedupKey()
	if !force && m.inFlight[key] {
		m.mu.Unlock()
		m.ignored.Add(1)
		logger.DebugfWithFields(logger.Fields{"job": string(job.Type), "key": job.Key},
			"job already in flight, ignoring")
		return false
	}
	m.inFlight[key] = true
	job.ctx = m.ctx
	m.sending.Add(1)
	m.mu.Unlock()

	m.scheduled.Add(1)
	m.queue <- job
	m.sending.Done()
	return true
}

// CancelAll cancels the context of every queued and running job. Jobs
// scheduled afterwards get a fresh context, so the manager stays usable.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	cancel := m.cancel
	if !m.closed {
		m.ctx, m.cancel = context.WithCancel(context.Background())
	}
	m.mu.Unlock()
	cancel()
}

// Shutdown cancels outstanding work, stops accepting new jobs and waits for
// the workers to drain.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.sending.Wait()
	close(m.queue)
	m.wg.Wait()
}

// Stats returns the cumulative counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Scheduled: m.scheduled.Load(),
		Completed: m.completed.Load(),
		Failed:    m.failed.Load(),
		Ignored:   m.ignored.Load(),
	}
}
