//go:build unix

package compositefs

import (
	"os"
	"syscall"
)

func deviceInode(info os.FileInfo) (uint64, uint64) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Dev), uint64(st.Ino)
	}
	return 0, 0
}
