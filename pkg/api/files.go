package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/matshelf/matshelf/internal/logger"
	"github.com/matshelf/matshelf/pkg/download"
	"github.com/matshelf/matshelf/pkg/errors"
	"github.com/matshelf/matshelf/pkg/fsutil"
)

// downloadChunkSize is the copy buffer for streamed file transfers. Cancel
// checks happen between chunks.
const downloadChunkSize = 64 * 1024

// DownloadFile executes one file transfer unit. It implements
// download.FileFetcher.
//
// The transfer short-circuits when a finished file already exists on disk,
// passes the waiting-to-ongoing gate so a raced cancel wins, then streams
// the signed URL into the unit's temp path with byte accounting. The
// downloaded size must match both the expected size and the reported
// content length; on any failure the partial temp file is removed so a
// retry starts clean.
func (c *Client) DownloadFile(ctx context.Context, file *download.FileDownload) error {
	if c.resolveExisting(file) {
		return nil
	}
	if !file.MarkOngoing() {
		return nil
	}

	if err := fsutil.EnsureDir(file.Directory); err != nil {
		return classifyWriteError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build download request")
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return classifyFileResponse(resp)
	}
	if resp.Body == nil {
		return errors.Wrap(errors.ErrMissingStream, file.Filename)
	}

	written, err := c.streamToTemp(ctx, file, resp.Body)
	if err != nil {
		removeTemp(file)
		return err
	}
	if file.Cancelled() {
		removeTemp(file)
		return nil
	}

	if file.SizeExpected > 0 && written != file.SizeExpected {
		removeTemp(file)
		return errors.Wrapf(errors.ErrSizeMismatch,
			"%s: wrote %d, expected %d", file.Filename, written, file.SizeExpected)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		removeTemp(file)
		return errors.Wrapf(errors.ErrSizeMismatch,
			"%s: wrote %d, content length %d", file.Filename, written, resp.ContentLength)
	}

	file.MarkDone()
	return nil
}

// resolveExisting reports whether the file is already complete on disk,
// either as the final file or as a finished temp from an earlier run, and
// marks the unit done when so.
func (c *Client) resolveExisting(file *download.FileDownload) bool {
	if file.SizeExpected <= 0 {
		return false
	}
	for _, path := range []string{file.FinalPath(), file.TempPath()} {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() == file.SizeExpected {
			file.MarkWaiting()
			if file.MarkOngoing() {
				file.SetDownloaded(file.SizeExpected)
				file.MarkDone()
				logger.DebugfWithFields(logger.Fields{"file": file.Filename},
					"file already on disk, skipping transfer")
			}
			return true
		}
	}
	return false
}

// streamToTemp copies the response body into the temp path chunk by chunk,
// accounting bytes on the unit and honoring cancellation between chunks.
func (c *Client) streamToTemp(ctx context.Context, file *download.FileDownload, body io.Reader) (int64, error) {
	out, err := fsutil.CreateFilePerm(file.TempPath(), fsutil.FileModeDefault)
	if err != nil {
		return 0, classifyWriteError(err)
	}
	defer func() { _ = out.Close() }()

	var written int64
	buf := make([]byte, downloadChunkSize)
	for {
		if file.Cancelled() || ctx.Err() != nil {
			return written, nil
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			wn, writeErr := out.Write(buf[:n])
			written += int64(wn)
			file.AddBytes(int64(wn))
			if writeErr != nil {
				return written, classifyWriteError(writeErr)
			}
		}
		if readErr == io.EOF {
			if err := out.Close(); err != nil {
				return written, classifyWriteError(err)
			}
			return written, nil
		}
		if readErr != nil {
			return written, classifyTransportError(readErr)
		}
	}
}

// classifyFileResponse maps a CDN error response onto the taxonomy. Expired
// signatures come back as 403 with an expiry note in the body.
func classifyFileResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	body := strings.ToLower(string(data))
	switch {
	case resp.StatusCode == http.StatusForbidden && strings.Contains(body, "expire"),
		resp.StatusCode == http.StatusGone:
		return errors.Wrapf(errors.ErrURLExpired, "HTTP %d", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Wrapf(errors.ErrNotAuthorized, "HTTP %d", resp.StatusCode)
	default:
		return errors.Wrapf(errors.ErrConnection, "HTTP %d", resp.StatusCode)
	}
}

// classifyWriteError maps filesystem failures onto the taxonomy. Full disks
// and permission problems are terminal for the whole asset download.
func classifyWriteError(err error) error {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return errors.Wrap(errors.ErrNoSpace, err.Error())
	case errors.Is(err, os.ErrPermission):
		return errors.Wrap(errors.ErrNoPermission, err.Error())
	default:
		return errors.Wrap(errors.ErrWriteFailed, err.Error())
	}
}

// removeTemp deletes the partial temp file after a failed or cancelled
// transfer so the next attempt starts clean.
func removeTemp(file *download.FileDownload) {
	if err := os.Remove(file.TempPath()); err != nil && !os.IsNotExist(err) {
		logger.WarnfWithFields(logger.Fields{
			"file":  file.TempPath(),
			"error": err.Error(),
		}, "failed to remove partial download")
	}
}
