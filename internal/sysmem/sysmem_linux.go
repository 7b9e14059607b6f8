//go:build linux

package sysmem

import "golang.org/x/sys/unix"

// totalSystemRAM returns total physical RAM in bytes on Linux.
func totalSystemRAM() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return uint64(info.Totalram) * uint64(info.Unit), nil
}
