package export

import (
	"fmt"
	"syscall"
)

// DiskSpace is the default housekeeping collaborator: it reports free bytes
// straight from the filesystem.
type DiskSpace struct{}

// FreeSpace returns the bytes available to an unprivileged writer at path.
func (DiskSpace) FreeSpace(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
