package platform

import "golang.org/x/sys/unix"

// DiskUsage reports free and total bytes for the filesystem that
// contains path.
func DiskUsage(path string) (free uint64, total uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}

	blockSize := uint64(stat.Bsize)
	return uint64(stat.Bavail) * blockSize, uint64(stat.Blocks) * blockSize, nil
}
