package download

import "context"

// FileFetcher executes a single file transfer. The implementation streams
// into the unit's temp path, accounts bytes on the unit and respects its
// cancel flag between chunks. It must go through MarkOngoing before touching
// the network and may resolve the unit to done itself (finished file found on
// disk, or transfer completed). A returned error means this attempt failed;
// retry policy is the scheduler's business.
type FileFetcher interface {
	DownloadFile(ctx context.Context, file *FileDownload) error
}
