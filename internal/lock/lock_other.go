//go:build !darwin && !linux

package lock

// WithExclusiveFileLock is a best-effort no-op on unsupported platforms.
// The in-process mutex in the registry still serializes writers.
func WithExclusiveFileLock(_ string, fn func() error) error {
	return fn()
}
