//go:build unix

package main

import "golang.org/x/sys/unix"

// diskFree returns free and total bytes for the filesystem holding path.
func diskFree(path string) (free, total uint64, ok bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, false
	}
	bsize := uint64(st.Bsize)
	return uint64(st.Bavail) * bsize, uint64(st.Blocks) * bsize, true
}
