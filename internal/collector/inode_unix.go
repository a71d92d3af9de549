//go:build linux || darwin

package collector

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode number from a os.FileInfo on Unix-like
// systems (spec.md §3, GLOSSARY).
func inodeOf(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Ino)
	}
	return 0
}
