// Package download tracks individual file transfers and schedules them over
// a bounded worker pool. Each FileDownload carries its own state machine and
// byte counter so that an asset-level coordinator can poll progress and
// cancel cooperatively without sharing locks with the transfer code.
package download

import (
	"path/filepath"
	"sync"
	"sync/atomic"
)

const (
	// TempSuffix is appended to the final filename while a transfer is in
	// flight, e.g. "Metal001_COL_2K.jpgdl". The rename to the final name
	// happens only after the whole asset succeeded.
	TempSuffix = "dl"

	// MaxRetriesPerFile bounds transfer attempts for a single file within
	// one URL plan.
	MaxRetriesPerFile = 3
)

// Status is the lifecycle state of one file transfer.
type Status int

// Status values. Done and Error are terminal; Cancelled blocks any later
// transition to Ongoing.
const (
	StatusInitialized Status = iota
	StatusWaiting
	StatusOngoing
	StatusCancelled
	StatusDone
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusWaiting:
		return "waiting"
	case StatusOngoing:
		return "ongoing"
	case StatusCancelled:
		return "cancelled"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// FileDownload is one file transfer unit. Status transitions go through the
// unit's mutex; the byte counter is atomic so progress reads never contend
// with the transfer loop.
type FileDownload struct {
	URL          string
	Filename     string
	Directory    string
	SizeExpected int64

	mu      sync.Mutex
	status  Status
	err     error
	retries int

	downloaded atomic.Int64
}

// NewFileDownload creates a transfer unit in the initialized state.
func NewFileDownload(url, filename, directory string, sizeExpected int64) *FileDownload {
	return &FileDownload{
		URL:          url,
		Filename:     filename,
		Directory:    directory,
		SizeExpected: sizeExpected,
		status:       StatusInitialized,
	}
}

// Status returns the current lifecycle state.
func (f *FileDownload) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Err returns the terminal error, nil unless the status is error.
func (f *FileDownload) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// MarkWaiting queues the unit. No-op once terminal or cancelled.
func (f *FileDownload) MarkWaiting() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusInitialized || f.status == StatusOngoing {
		f.status = StatusWaiting
	}
}

// MarkOngoing attempts the transition into active transfer. It reports false
// when the unit was cancelled or already finished, in which case the caller
// must not start the transfer. This gate closes the race between a cancel
// request and a worker picking the unit up.
func (f *FileDownload) MarkOngoing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != StatusWaiting {
		return false
	}
	f.status = StatusOngoing
	return true
}

// MarkDone records success. Terminal.
func (f *FileDownload) MarkDone() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusDone || f.status == StatusError {
		return
	}
	f.status = StatusDone
}

// MarkError records failure. Terminal.
func (f *FileDownload) MarkError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusDone || f.status == StatusError {
		return
	}
	f.status = StatusError
	f.err = err
}

// MarkCancelled flags the unit so it never enters the ongoing state. Units
// that already finished keep their terminal state.
func (f *FileDownload) MarkCancelled() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusDone || f.status == StatusError {
		return
	}
	f.status = StatusCancelled
}

// Cancelled reports whether a cancel was requested for this unit. The
// transfer loop checks this between chunks.
func (f *FileDownload) Cancelled() bool {
	return f.Status() == StatusCancelled
}

// ConsumeRetry uses up one transfer attempt and reports whether another one
// is allowed. It also resets the unit to waiting so the ongoing gate applies
// again on the retry.
func (f *FileDownload) ConsumeRetry() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
	if f.retries >= MaxRetriesPerFile {
		return false
	}
	if f.status == StatusOngoing {
		f.status = StatusWaiting
	}
	f.downloaded.Store(0)
	return f.status == StatusWaiting
}

// ResetForResubmit prepares a failed unit for a fresh URL after a plan
// refetch: new URL, waiting state, zero bytes. The retry budget carries over.
func (f *FileDownload) ResetForResubmit(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.URL = url
	f.status = StatusWaiting
	f.err = nil
	f.downloaded.Store(0)
}

// Downloaded returns the bytes written so far.
func (f *FileDownload) Downloaded() int64 {
	return f.downloaded.Load()
}

// AddBytes accounts a written chunk.
func (f *FileDownload) AddBytes(n int64) {
	f.downloaded.Add(n)
}

// SetDownloaded overwrites the byte counter, used when a finished file is
// found on disk and the transfer is skipped.
func (f *FileDownload) SetDownloaded(n int64) {
	f.downloaded.Store(n)
}

// TempPath is the in-flight location of the file.
func (f *FileDownload) TempPath() string {
	return filepath.Join(f.Directory, f.Filename+TempSuffix)
}

// FinalPath is the location of the file after the asset-level rename pass.
func (f *FileDownload) FinalPath() string {
	return filepath.Join(f.Directory, f.Filename)
}
