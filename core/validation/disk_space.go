package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"wallgen/core"
)

// DefaultRequiredBytes is the free space expected in the data directory.
// Each generation stores an original plus a 4x upscale, so a few hundred
// megabytes covers a long prompt history.
const DefaultRequiredBytes int64 = 500 * core.BytesPerMB

// DiskSpaceInfo describes the filesystem holding a path.
type DiskSpaceInfo struct {
	Path        string
	Total       int64
	Free        int64
	Used        int64
	UsedPercent float64
}

// DiskSpaceError reports insufficient free space.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
		e.Path, core.FormatBytes(e.Required), core.FormatBytes(e.Available))
}

// GetDiskSpace returns disk usage for the filesystem containing path.
// A path that does not exist yet is resolved through its nearest existing
// parent, so the check works before the data directory is created.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	probe := path
	for {
		info, err := os.Stat(probe)
		if err == nil {
			if !info.IsDir() {
				probe = filepath.Dir(probe)
			}
			break
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot access %s: %w", probe, err)
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return nil, fmt.Errorf("cannot access %s: %w", path, err)
		}
		probe = parent
	}

	total, free, err := getDiskSpace(probe)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk space for %s: %w", probe, err)
	}

	used := total - free
	var usedPercent float64
	if total > 0 {
		usedPercent = float64(used) / float64(total) * 100
	}
	return &DiskSpaceInfo{
		Path:        probe,
		Total:       total,
		Free:        free,
		Used:        used,
		UsedPercent: usedPercent,
	}, nil
}

// CheckDiskSpace returns a *DiskSpaceError when the filesystem containing
// path has less than requiredBytes free.
func CheckDiskSpace(path string, requiredBytes int64) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return err
	}
	if info.Free < requiredBytes {
		return &DiskSpaceError{Path: path, Required: requiredBytes, Available: info.Free}
	}
	return nil
}
