package app

import "syscall"

// diskStats describes the filesystem holding the TLE cache.
type diskStats struct {
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

// diskUsage returns usage for the filesystem containing path, or nil when
// it cannot be inspected.
func diskUsage(path string) *diskStats {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return nil
	}
	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	avail := st.Bavail * bsize
	used := total - st.Bfree*bsize
	ds := &diskStats{TotalBytes: total, UsedBytes: used, AvailableBytes: avail}
	if total > 0 {
		ds.UsedPercent = float64(used) / float64(total) * 100
	}
	return ds
}
