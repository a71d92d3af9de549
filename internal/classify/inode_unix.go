//go:build linux || darwin

package classify

import (
	"os"
	"syscall"
)

// defaultInodeOf extracts the inode number from a os.FileInfo on Unix-like
// systems, where inode is the file's stable filesystem identity (spec.md
// §3, GLOSSARY).
func defaultInodeOf(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Ino)
	}
	return 0
}
