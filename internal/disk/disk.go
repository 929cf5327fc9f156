package disk

import (
	"fmt"

	sigar "github.com/cloudfoundry/gosigar"
)

// Usage is the space on the filesystem holding a path, in bytes.
type Usage struct {
	TotalBytes uint64
	UsedBytes  uint64
	FreeBytes  uint64
}

// FreePercent returns the share of the filesystem still available.
func (u Usage) FreePercent() float64 {
	if u.TotalBytes == 0 {
		return 100
	}
	return float64(u.FreeBytes) / float64(u.TotalBytes) * 100
}

// GetUsage returns usage for the filesystem containing path.
func GetUsage(path string) (Usage, error) {
	fs := sigar.FileSystemUsage{}
	if err := fs.Get(path); err != nil {
		return Usage{}, fmt.Errorf("filesystem usage for %s: %w", path, err)
	}

	// sigar reports 1K blocks; Avail is what an unprivileged user can use.
	return Usage{
		TotalBytes: fs.Total * 1024,
		UsedBytes:  fs.Used * 1024,
		FreeBytes:  fs.Avail * 1024,
	}, nil
}
