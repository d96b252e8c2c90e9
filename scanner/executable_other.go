//go:build !unix

package scanner

import "io/fs"

func canExecute(_ string, info fs.FileInfo) bool {
	return info.Mode()&0o111 != 0
}
