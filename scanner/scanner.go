package scanner

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// MetadataKind identifies where a tool's metadata lives.
type MetadataKind string

const (
	MetadataEmbedded MetadataKind = "embedded"
	MetadataSidecar  MetadataKind = "sidecar"
)

// MetadataSource points at a tool's metadata. Construct it with Embedded or
// Sidecar; a source always carries exactly one kind.
type MetadataSource struct {
	Kind MetadataKind `json:"kind"`
	Path string       `json:"path"`
}

// Embedded returns a source for metadata expected inside the executable.
func Embedded(executablePath string) MetadataSource {
	return MetadataSource{Kind: MetadataEmbedded, Path: executablePath}
}

// Sidecar returns a source for metadata stored in a separate YAML file.
func Sidecar(path string) MetadataSource {
	return MetadataSource{Kind: MetadataSidecar, Path: path}
}

// IsSidecar reports whether the source is a sidecar file.
func (s MetadataSource) IsSidecar() bool {
	return s.Kind == MetadataSidecar
}

func (s MetadataSource) String() string {
	return string(s.Kind) + ":" + s.Path
}

// DiscoveredTool is one executable candidate found by a scan.
type DiscoveredTool struct {
	ExecutablePath string         `json:"executable_path"`
	Metadata       MetadataSource `json:"metadata"`
}

// Name returns the executable's file name.
func (t DiscoveredTool) Name() string {
	return filepath.Base(t.ExecutablePath)
}

// ErrNotDirectory is wrapped by the fatal error returned when the scan
// target exists but is not a directory.
var ErrNotDirectory = errors.New("not a directory")

const readDirBatch = 128

// statPath is replaced in tests to simulate inaccessible sidecars.
var statPath = os.Stat

// DirectoryScanner discovers tools in one directory level. Non-fatal errors
// accumulate across scans until drained with TakeErrors.
//
// A DirectoryScanner is not safe for concurrent use.
type DirectoryScanner struct {
	errs []error
}

// New creates a scanner with an empty error log.
func New() *DirectoryScanner {
	return &DirectoryScanner{}
}

// ScanDirectory lists the immediate children of dir and returns every
// executable candidate with its resolved metadata source, in listing order.
//
// It fails only when dir itself cannot be opened or listed. Entries that
// cannot be inspected are skipped and recorded in the error log.
func (s *DirectoryScanner) ScanDirectory(dir string) ([]DiscoveredTool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, newIOError(dir, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newIOError(dir, err)
	}
	if !info.IsDir() {
		return nil, newIOError(dir, ErrNotDirectory)
	}

	tools := make([]DiscoveredTool, 0)
	listed := false
	for {
		entries, err := f.ReadDir(readDirBatch)
		for _, entry := range entries {
			if tool, ok := s.inspect(dir, entry); ok {
				tools = append(tools, tool)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !listed {
				return nil, newIOError(dir, err)
			}
			s.errs = append(s.errs, newIOError(dir, err))
			break
		}
		listed = true
	}
	return tools, nil
}

func (s *DirectoryScanner) inspect(dir string, entry fs.DirEntry) (DiscoveredTool, bool) {
	if entry.IsDir() {
		return DiscoveredTool{}, false
	}

	path := filepath.Join(dir, entry.Name())
	info, err := os.Stat(path)
	if err != nil {
		s.errs = append(s.errs, newIOError(path, err))
		return DiscoveredTool{}, false
	}
	if info.IsDir() || !IsExecutable(path, info) {
		return DiscoveredTool{}, false
	}

	return DiscoveredTool{
		ExecutablePath: path,
		Metadata:       s.resolveMetadataSource(path),
	}, true
}

func (s *DirectoryScanner) resolveMetadataSource(executablePath string) MetadataSource {
	sidecar := SidecarPath(executablePath)
	info, err := statPath(sidecar)
	switch {
	case err == nil && !info.IsDir():
		return Sidecar(sidecar)
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return Embedded(executablePath)
	default:
		s.errs = append(s.errs, newPermissionDeniedError(sidecar, err))
		return Embedded(executablePath)
	}
}

// TakeErrors returns the accumulated non-fatal errors and clears the log.
func (s *DirectoryScanner) TakeErrors() []error {
	errs := s.errs
	s.errs = nil
	return errs
}

// Errors returns a copy of the accumulated non-fatal errors without
// clearing the log.
func (s *DirectoryScanner) Errors() []error {
	if len(s.errs) == 0 {
		return nil
	}
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}
