package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// executableExtensions are treated as runnable when the permission check
// fails, for platforms where execute bits are not meaningful.
var executableExtensions = map[string]struct{}{
	".exe": {},
	".bat": {},
	".cmd": {},
	".ps1": {},
	".sh":  {},
}

// IsExecutable reports whether the file at path should be treated as a tool.
// The permission check runs first; the extension allow-list is only
// consulted when it fails.
func IsExecutable(path string, info fs.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if canExecute(path, info) {
		return true
	}
	return hasExecutableExtension(path)
}

func hasExecutableExtension(path string) bool {
	ext := extension(path)
	if ext == "" {
		return false
	}
	_, ok := executableExtensions[strings.ToLower(ext)]
	return ok
}

// extension returns the file extension of path. A name made only of a
// leading dot and a word (".tool") has no extension.
func extension(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == base {
		return ""
	}
	return ext
}

// SidecarPath returns the metadata sidecar location for an executable: the
// same path with its extension replaced by, or extended with, ".yaml".
func SidecarPath(executablePath string) string {
	ext := extension(executablePath)
	return strings.TrimSuffix(executablePath, ext) + ".yaml"
}
