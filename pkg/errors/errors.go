package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to replace config file")

	// Network errors.
	ErrConnection = fmt.Errorf("connection error")
	ErrTimeout    = fmt.Errorf("connection timed out")
	ErrProxy      = fmt.Errorf("cannot connect due to proxy error")

	// Authorization errors.
	ErrNotAuthorized = fmt.Errorf("not authorized")
	ErrNoToken       = fmt.Errorf("failed to get token from login")
	ErrWrongCreds    = fmt.Errorf("the email/password provided doesn't match our records")

	// Protocol errors.
	ErrNotPopulated  = fmt.Errorf("data not populated in response")
	ErrMissingStream = fmt.Errorf("response body missing from stream")
	ErrMissingURLs   = fmt.Errorf("response lacking download URLs")
	ErrURLExpired    = fmt.Errorf("download URL expired")

	// Filesystem errors.
	ErrNoSpace      = fmt.Errorf("no space left on device")
	ErrNoPermission = fmt.Errorf("disk permission denied")
	ErrWriteFailed  = fmt.Errorf("failed to write file")
	ErrUnzipFailed  = fmt.Errorf("error during asset unzip")

	// Integrity errors.
	ErrSizeMismatch = fmt.Errorf("download filesize mismatch")

	// Cancellation.
	ErrUserCancelled = fmt.Errorf("user cancelled download")

	// Asset index errors.
	ErrAssetNotFound  = fmt.Errorf("asset not found in index")
	ErrAssetMismatch  = fmt.Errorf("asset identity cannot be changed")
	ErrNotSupported   = fmt.Errorf("asset type not supported")
	ErrCacheCorrupted = fmt.Errorf("failed to read asset cache snapshot")

	// Download errors.
	ErrDownloadFailed = fmt.Errorf("download failed")
	ErrInvalidPath    = fmt.Errorf("invalid path")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
)

// Kind buckets errors for retry and reporting policy.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNetwork
	KindAuthorization
	KindProtocol
	KindFilesystem
	KindIntegrity
	KindUserCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthorization:
		return "authorization"
	case KindProtocol:
		return "protocol"
	case KindFilesystem:
		return "filesystem"
	case KindIntegrity:
		return "integrity"
	case KindUserCancelled:
		return "cancelled"
	default:
		return "unexpected"
	}
}

// Classify maps an error onto the taxonomy. Unknown errors are inspected for
// well-known OS and net conditions before falling back to KindUnexpected.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnexpected
	case errors.Is(err, ErrUserCancelled), errors.Is(err, context.Canceled):
		return KindUserCancelled
	case errors.Is(err, ErrConnection), errors.Is(err, ErrTimeout), errors.Is(err, ErrProxy),
		errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.Is(err, ErrNotAuthorized), errors.Is(err, ErrNoToken), errors.Is(err, ErrWrongCreds):
		return KindAuthorization
	case errors.Is(err, ErrURLExpired), errors.Is(err, ErrMissingStream),
		errors.Is(err, ErrMissingURLs), errors.Is(err, ErrNotPopulated):
		return KindProtocol
	case errors.Is(err, ErrNoSpace), errors.Is(err, ErrNoPermission),
		errors.Is(err, ErrWriteFailed), errors.Is(err, ErrUnzipFailed),
		errors.Is(err, syscall.ENOSPC), errors.Is(err, os.ErrPermission):
		return KindFilesystem
	case errors.Is(err, ErrSizeMismatch):
		return KindIntegrity
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return KindFilesystem
	}
	return KindUnexpected
}

// Retryable reports whether an error is worth another attempt. Network and
// protocol failures are transient; a full disk or a revoked token is not.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindNetwork, KindProtocol:
		return true
	default:
		return false
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
