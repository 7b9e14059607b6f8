//go:build !linux

package sysmem

import "errors"

// totalSystemRAM is unsupported on this platform.
func totalSystemRAM() (uint64, error) {
	return 0, errors.New("sysmem: unsupported platform")
}
