//go:build !unix

package main

// diskFree is unavailable on this platform.
func diskFree(path string) (free, total uint64, ok bool) {
	return 0, 0, false
}
