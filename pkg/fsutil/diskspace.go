package fsutil

import (
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/matshelf/matshelf/pkg/errors"
)

// FreeSpace returns the free bytes on the filesystem holding path. When path
// does not exist yet, the nearest existing parent is probed instead.
func FreeSpace(path string) (uint64, error) {
	probe := path
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	usage, err := disk.Usage(probe)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read disk usage for %s", probe)
	}
	return usage.Free, nil
}

// CheckFreeSpace verifies that at least required bytes are free on the
// filesystem holding path and returns ErrNoSpace otherwise. A probe failure
// is not treated as full; the download itself will surface real write errors.
func CheckFreeSpace(path string, required int64) error {
	if required <= 0 {
		return nil
	}
	free, err := FreeSpace(path)
	if err != nil {
		return nil
	}
	if free < uint64(required) {
		return errors.Wrapf(errors.ErrNoSpace, "%d bytes required, %d free at %s", required, free, path)
	}
	return nil
}
