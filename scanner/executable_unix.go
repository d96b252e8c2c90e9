//go:build unix

package scanner

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

func canExecute(path string, info fs.FileInfo) bool {
	if info.Mode()&0o111 == 0 {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
