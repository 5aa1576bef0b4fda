// Package orchestrator coordinates whole-asset downloads: it resolves the
// URL plan, schedules the file transfers, polls progress, refetches expired
// plans and finally renames the finished files into place and rescans the
// asset directory.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/api"
	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/config"
	"github.com/matshelf/matshelf/pkg/download"
	"github.com/matshelf/matshelf/pkg/errors"
	"github.com/matshelf/matshelf/pkg/fsutil"
	"github.com/matshelf/matshelf/pkg/hook"
	"github.com/matshelf/matshelf/pkg/index"
)

// MaxDownloadRetries bounds URL plan fetches per asset download. Expired
// plans and transient failures each consume one attempt.
const MaxDownloadRetries = 10

// Options tunes the orchestrator. Zero values fall back to the config
// defaults.
type Options struct {
	// MaxAssetDownloads is the number of assets downloaded in parallel.
	MaxAssetDownloads int

	// WorkersPerAsset is the number of parallel file transfers per asset.
	WorkersPerAsset int

	// PollInterval is how often a running download checks its transfers.
	PollInterval time.Duration

	// LibraryPaths are the asset library roots, primary first.
	LibraryPaths []string

	// Hooks optionally runs user scripts around each download.
	Hooks *hook.Executor
}

// Callbacks notify the caller about download lifecycle events. All callbacks
// may be nil and must be safe to call from any goroutine.
type Callbacks struct {
	// OnProgress reports bytes downloaded against the plan total.
	OnProgress func(assetID int, downloaded, total int64)

	// OnDone fires exactly once per accepted download, nil err on success.
	// A request dropped because the asset is already queued does not fire it.
	OnDone func(assetID int, err error)

	// ShouldContinue is polled during the download; returning false cancels.
	ShouldContinue func(assetID int) bool
}

// Request describes what the user wants of an asset download. Sizes not
// available on the asset fall back to the largest available size.
type Request struct {
	Sizes       []string
	LODs        []string
	Workflow    string
	Prefer16Bit bool
}

// Orchestrator runs asset downloads over a bounded number of slots. One
// asset is downloaded at most once at a time; repeated requests while queued
// are ignored.
type Orchestrator struct {
	backend   Backend
	index     Index
	opts      Options
	callbacks Callbacks

	slots chan struct{}

	mu        sync.Mutex
	queued    map[int]bool
	cancelled map[int]bool
	active    map[int]*download.Scheduler
}

// New creates an orchestrator. Zero option values take the config defaults.
func New(backend Backend, idx Index, opts Options, callbacks Callbacks) *Orchestrator {
	if opts.MaxAssetDownloads <= 0 {
		opts.MaxAssetDownloads = config.DefaultMaxAssetDownloads
	}
	if opts.WorkersPerAsset <= 0 {
		opts.WorkersPerAsset = config.DefaultWorkersPerAsset
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	return &Orchestrator{
		backend:   backend,
		index:     idx,
		opts:      opts,
		callbacks: callbacks,
		slots:     make(chan struct{}, opts.MaxAssetDownloads),
		queued:    map[int]bool{},
		cancelled: map[int]bool{},
		active:    map[int]*download.Scheduler{},
	}
}

// IsQueued reports whether a download for the asset is queued or running.
func (o *Orchestrator) IsQueued(assetID int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.queued[assetID]
}

// CancelDownload requests cancellation of one asset download. Safe to call
// before the download acquired a slot; queued downloads then abort without
// transferring anything.
func (o *Orchestrator) CancelDownload(assetID int) {
	o.mu.Lock()
	if !o.queued[assetID] {
		o.mu.Unlock()
		return
	}
	o.cancelled[assetID] = true
	scheduler := o.active[assetID]
	o.mu.Unlock()

	if scheduler != nil {
		scheduler.Cancel()
	}
}

// CancelAll cancels every queued and running download.
func (o *Orchestrator) CancelAll() {
	o.mu.Lock()
	ids := make([]int, 0, len(o.queued))
	for id := range o.queued {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		o.CancelDownload(id)
	}
}

// DownloadAsset downloads one asset into the library and blocks until the
// download finished, failed or was cancelled. A request for an asset that is
// already queued returns immediately without a second download.
func (o *Orchestrator) DownloadAsset(ctx context.Context, assetID int, req Request) (err error) {
	o.mu.Lock()
	if o.queued[assetID] {
		o.mu.Unlock()
		logger.DebugfWithFields(logger.Fields{"asset_id": assetID}, "download already queued")
		return nil
	}
	o.queued[assetID] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.queued, assetID)
		delete(o.cancelled, assetID)
		delete(o.active, assetID)
		o.mu.Unlock()
		if o.callbacks.OnDone != nil {
			o.callbacks.OnDone(assetID, err)
		}
	}()

	select {
	case o.slots <- struct{}{}:
	case <-ctx.Done():
		return errors.Wrap(errors.ErrUserCancelled, "waiting for download slot")
	}
	defer func() { <-o.slots }()

	if o.stopRequested(ctx, assetID) {
		return errors.Wrapf(errors.ErrUserCancelled, "asset %d", assetID)
	}
	return o.run(ctx, assetID, req)
}

// run executes the download once a slot is held.
func (o *Orchestrator) run(ctx context.Context, assetID int, req Request) error {
	asset, err := o.index.GetAsset(assetID)
	if err != nil {
		return err
	}

	directory, err := o.resolveDirectory(asset)
	if err != nil {
		return err
	}
	spec := api.DownloadSpec{
		Sizes:       o.resolveSizes(asset, req.Sizes),
		LODs:        req.LODs,
		Workflow:    req.Workflow,
		Prefer16Bit: req.Prefer16Bit,
	}

	o.runHook(hook.PreDownload, asset, directory, 0)

	// Rescan regardless of outcome so a partially delivered asset still
	// shows up with whatever sizes made it to disk.
	defer func() {
		if rescanErr := o.index.UpdateFromDirectory(assetID, directory); rescanErr != nil {
			logger.WarnfWithFields(logger.Fields{
				"asset_id": assetID,
				"error":    rescanErr.Error(),
			}, "failed to rescan asset directory")
		}
	}()

	units := map[string]*download.FileDownload{}
	var plan []*download.FileDownload
	var sizeTotal int64
	var lastErr error
	finished := false

	for attempt := 1; attempt <= MaxDownloadRetries; attempt++ {
		if o.stopRequested(ctx, assetID) {
			return errors.Wrapf(errors.ErrUserCancelled, "asset %d", assetID)
		}

		resolved, err := o.backend.GetDownloadURLs(ctx, assetID, directory, spec, attempt > 1)
		if err != nil {
			if errors.Retryable(err) {
				lastErr = err
				logger.WarnfWithFields(logger.Fields{
					"asset_id": assetID,
					"attempt":  attempt,
					"error":    err.Error(),
				}, "failed to resolve download URLs, retrying")
				continue
			}
			return err
		}
		plan, sizeTotal = mergePlan(units, resolved)

		if err := fsutil.CheckFreeSpace(directory, sizeTotal); err != nil {
			return errors.Wrapf(err, "asset %d needs %d bytes", assetID, sizeTotal)
		}

		scheduler := download.NewScheduler(o.backend, o.opts.WorkersPerAsset)
		o.mu.Lock()
		o.active[assetID] = scheduler
		cancelled := o.cancelled[assetID]
		o.mu.Unlock()
		if cancelled {
			return errors.Wrapf(errors.ErrUserCancelled, "asset %d", assetID)
		}
		scheduler.Schedule(ctx, plan)

		done, err := o.poll(ctx, assetID, scheduler, sizeTotal)
		if done {
			finished = true
			break
		}
		if errors.Is(err, errors.ErrUserCancelled) || !errors.Retryable(err) {
			return err
		}
		lastErr = err
		logger.WarnfWithFields(logger.Fields{
			"asset_id": assetID,
			"attempt":  attempt,
			"error":    err.Error(),
		}, "download attempt failed, refetching URLs")
	}

	if !finished {
		return errors.Wrapf(errors.ErrDownloadFailed,
			"asset %d exhausted %d attempts: %v", assetID, MaxDownloadRetries, lastErr)
	}

	if err := finalizeFiles(plan); err != nil {
		return errors.Wrapf(err, "asset %d", assetID)
	}

	o.progress(assetID, sizeTotal, sizeTotal)
	o.runHook(hook.PostDownload, asset, directory, sizeTotal)
	logger.InfofWithFields(logger.Fields{
		"asset_id": assetID,
		"asset":    asset.AssetName,
		"bytes":    sizeTotal,
	}, "asset download finished")
	return nil
}

// poll watches a scheduled attempt. It returns done=true on success, or the
// attempt's first error. A nil error with done=false never happens.
func (o *Orchestrator) poll(ctx context.Context, assetID int, scheduler *download.Scheduler, sizeTotal int64) (bool, error) {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		allDone, anyError, downloaded, firstErr := scheduler.Check()
		o.progress(assetID, downloaded, sizeTotal)

		if anyError {
			scheduler.Cancel()
			if errors.Is(firstErr, errors.ErrUserCancelled) {
				return false, errors.Wrapf(errors.ErrUserCancelled, "asset %d", assetID)
			}
			return false, firstErr
		}
		if allDone {
			return true, nil
		}

		if o.stopRequested(ctx, assetID) {
			scheduler.Cancel()
			return false, errors.Wrapf(errors.ErrUserCancelled, "asset %d", assetID)
		}
		<-ticker.C
	}
}

// stopRequested checks the three cancellation sources: an explicit cancel
// call, the caller's context and the ShouldContinue callback.
func (o *Orchestrator) stopRequested(ctx context.Context, assetID int) bool {
	if ctx.Err() != nil {
		return true
	}
	o.mu.Lock()
	cancelled := o.cancelled[assetID]
	o.mu.Unlock()
	if cancelled {
		return true
	}
	if o.callbacks.ShouldContinue != nil && !o.callbacks.ShouldContinue(assetID) {
		return true
	}
	return false
}

// resolveDirectory picks the asset directory: an existing directory in any
// library wins, otherwise the asset goes into the primary library.
func (o *Orchestrator) resolveDirectory(asset *assets.AssetData) (string, error) {
	if len(o.opts.LibraryPaths) == 0 {
		return "", errors.Wrap(errors.ErrConfigValidation, "no library path configured")
	}

	directory := filepath.Join(o.opts.LibraryPaths[0], asset.AssetName)
	if existing := index.FindAssetDirectory(asset.AssetName, o.opts.LibraryPaths); existing != "" {
		directory = existing
	}
	if err := fsutil.EnsureDir(directory); err != nil {
		return "", err
	}
	return directory, nil
}

// resolveSizes filters the requested sizes down to what the asset offers.
// When nothing requested is available the largest available size is used
// instead, so the user always gets the asset rather than an error.
func (o *Orchestrator) resolveSizes(asset *assets.AssetData, requested []string) []string {
	available := asset.SizeList(false)
	if len(available) == 0 {
		return requested
	}
	availableSet := map[string]bool{}
	for _, size := range available {
		availableSet[size] = true
	}

	resolved := make([]string, 0, len(requested))
	for _, size := range requested {
		if availableSet[size] {
			resolved = append(resolved, size)
		}
	}
	if len(resolved) > 0 {
		return resolved
	}

	for i := len(assets.Sizes) - 1; i >= 0; i-- {
		size := assets.Sizes[i]
		if size == assets.SizeWatermarked || !availableSet[size] {
			continue
		}
		logger.WarnfWithFields(logger.Fields{
			"asset":     asset.AssetName,
			"requested": requested,
			"fallback":  size,
		}, "requested size not available, falling back")
		return []string{size}
	}
	return requested
}

// mergePlan folds a freshly fetched plan into the unit set. Units that
// already finished keep their state; failed or cancelled units are reset
// onto the new URL with their retry budget intact.
func mergePlan(units map[string]*download.FileDownload, resolved *api.DownloadPlan) ([]*download.FileDownload, int64) {
	for _, unit := range resolved.Downloads {
		existing, ok := units[unit.Filename]
		if !ok {
			units[unit.Filename] = unit
			continue
		}
		if existing.Status() == download.StatusDone {
			continue
		}
		existing.ResetForResubmit(unit.URL)
	}

	plan := make([]*download.FileDownload, 0, len(units))
	var sizeTotal int64
	for _, unit := range units {
		plan = append(plan, unit)
		sizeTotal += unit.SizeExpected
	}
	return plan, sizeTotal
}

// finalizeFiles renames the temp files of a finished download into place.
// A final file that already exists is kept and the temp copy dropped. A unit
// whose temp file went missing fails the asset, but the remaining files are
// still moved so the rescan picks them up.
func finalizeFiles(plan []*download.FileDownload) error {
	var firstErr error
	for _, unit := range plan {
		if unit.Status() != download.StatusDone {
			continue
		}
		tempPath := unit.TempPath()
		finalPath := unit.FinalPath()

		if _, err := os.Stat(finalPath); err == nil {
			if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
				logger.Warnf("failed to remove redundant temp file %s: %v", tempPath, removeErr)
			}
			continue
		}

		if err := os.Rename(tempPath, finalPath); err != nil {
			var unitErr error
			switch {
			case os.IsNotExist(err):
				unitErr = errors.Wrapf(errors.ErrDownloadFailed, "downloaded file vanished: %s", tempPath)
			case errors.Is(err, os.ErrPermission):
				unitErr = errors.Wrapf(errors.ErrNoPermission, "failed to move %s into place", unit.Filename)
			default:
				unitErr = errors.Wrapf(errors.ErrWriteFailed, "failed to move %s into place: %v", unit.Filename, err)
			}
			logger.Errorf("%v", unitErr)
			if firstErr == nil {
				firstErr = unitErr
			}
		}
	}
	return firstErr
}

// progress reports byte progress to the caller.
func (o *Orchestrator) progress(assetID int, downloaded, total int64) {
	if o.callbacks.OnProgress != nil {
		o.callbacks.OnProgress(assetID, downloaded, total)
	}
}

// runHook runs a download hook. Hook failures are logged, never fatal.
func (o *Orchestrator) runHook(hookType hook.Type, asset *assets.AssetData, directory string, sizeBytes int64) {
	if o.opts.Hooks == nil {
		return
	}
	err := o.opts.Hooks.Execute(hookType, hook.Context{
		AssetID:   asset.AssetID,
		AssetName: asset.AssetName,
		Directory: directory,
		SizeBytes: sizeBytes,
	})
	if err != nil {
		logger.WarnfWithFields(logger.Fields{
			"asset": asset.AssetName,
			"hook":  string(hookType),
			"error": err.Error(),
		}, "download hook failed")
	}
}
