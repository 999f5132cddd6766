package estimator

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/Dicklesworthstone/devdiag/internal/model"
)

// StubDiskSpace is reported when storage cannot be introspected: 128 GB
// total with half used.
var StubDiskSpace = model.DiskSpace{
	TotalMB:     128 * 1024,
	UsedMB:      64 * 1024,
	AvailableMB: 64 * 1024,
}

// DiskReader reports storage usage.
type DiskReader interface {
	DiskSpace(ctx context.Context) (model.DiskSpace, error)
}

// StubDisk always reports StubDiskSpace.
type StubDisk struct{}

func (StubDisk) DiskSpace(context.Context) (model.DiskSpace, error) { return StubDiskSpace, nil }

// HostDisk reads usage of the filesystem mounted at Path.
type HostDisk struct {
	Path string
}

func (d HostDisk) DiskSpace(ctx context.Context) (model.DiskSpace, error) {
	u, err := disk.UsageWithContext(ctx, d.Path)
	if err != nil {
		return model.DiskSpace{}, fmt.Errorf("disk usage %s: %w", d.Path, err)
	}
	return model.DiskSpace{
		TotalMB:     float64(u.Total) / bytesPerMB,
		UsedMB:      float64(u.Used) / bytesPerMB,
		AvailableMB: float64(u.Free) / bytesPerMB,
	}, nil
}
