//go:build unix

package fsq

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// SyncDir flushes dir's entries so a rename or link into it survives a
// crash. Filesystems that cannot fsync a directory are treated as synced.
func SyncDir(dir string) (err error) {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}()
	if err := d.Sync(); err != nil && !dirSyncUnsupported(err) {
		return err
	}
	return nil
}

func dirSyncUnsupported(err error) bool {
	return errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EBADF)
}
