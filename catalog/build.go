package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/petal-labs/mcpserve/scanner"
	"github.com/petal-labs/mcpserve/tool"
)

// DefaultIgnoreFile is read from the scanned directory when present.
const DefaultIgnoreFile = ".mcpignore"

const (
	errorCodeScanFailed = "SCAN_FAILED"
	errorCodeCanceled   = "CANCELED"
)

// BuildOptions configures Build.
type BuildOptions struct {
	Logger *slog.Logger
	// IgnoreFile overrides DefaultIgnoreFile. Set to "-" to disable.
	IgnoreFile string
	// Now overrides the clock.
	Now func() time.Time
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.IgnoreFile == "" {
		o.IgnoreFile = DefaultIgnoreFile
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Build scans dir and loads the metadata of every discovered tool. Only a
// failure to list dir itself fails the build; malformed or missing metadata
// is reported per entry.
func Build(ctx context.Context, dir string, opts BuildOptions) (Snapshot, error) {
	opts = opts.withDefaults()
	started := opts.Now()
	snapshot := Snapshot{
		ID:        uuid.New().String(),
		Directory: filepath.Clean(dir),
		ScannedAt: started.UTC(),
		Entries:   []Entry{},
	}
	logger := opts.Logger.With("scan_id", snapshot.ID, "directory", snapshot.Directory)

	observe := func(errorCode string) {
		finished := opts.Now()
		counts := snapshot.Counts()
		currentObserver().ObserveScan(ScanObservation{
			ScanID:     snapshot.ID,
			Directory:  snapshot.Directory,
			Discovered: len(snapshot.Entries),
			Ready:      counts[StatusReady],
			Invalid:    counts[StatusInvalid],
			Unresolved: counts[StatusUnresolved],
			Warnings:   len(snapshot.Warnings),
			DurationMS: finished.Sub(started).Milliseconds(),
			StartedAt:  started,
			FinishedAt: finished,
			ErrorCode:  errorCode,
		})
	}

	s := scanner.New()
	discovered, err := s.ScanDirectory(snapshot.Directory)
	if err != nil {
		observe(errorCodeScanFailed)
		return Snapshot{}, fmt.Errorf("catalog: scan %s: %w", snapshot.Directory, err)
	}
	for _, scanErr := range s.TakeErrors() {
		logger.Warn("scanner warning", "error", scanErr)
		snapshot.Warnings = append(snapshot.Warnings, scanErr.Error())
	}

	matcher, err := loadIgnoreMatcher(snapshot.Directory, opts.IgnoreFile)
	if err != nil {
		logger.Warn("ignoring unreadable ignore file", "error", err)
		snapshot.Warnings = append(snapshot.Warnings, err.Error())
	}

	// Resolve duplicate names deterministically regardless of listing order.
	slices.SortFunc(discovered, func(a, b scanner.DiscoveredTool) int {
		return strings.Compare(a.ExecutablePath, b.ExecutablePath)
	})

	sidecars := make(map[string]struct{}, len(discovered))
	for _, d := range discovered {
		if d.Metadata.IsSidecar() && d.Metadata.Path != d.ExecutablePath {
			sidecars[d.Metadata.Path] = struct{}{}
		}
	}

	taken := make(map[string]string)
	for _, d := range discovered {
		if err := ctx.Err(); err != nil {
			observe(errorCodeCanceled)
			return Snapshot{}, err
		}
		if _, isSidecar := sidecars[d.ExecutablePath]; isSidecar {
			logger.Debug("skipping executable sidecar", "path", d.ExecutablePath)
			continue
		}
		if matcher != nil && matcher.MatchesPath(d.Name()) {
			logger.Debug("skipping ignored tool", "path", d.ExecutablePath)
			continue
		}

		entry := loadEntry(d, snapshot.Directory, snapshot.ScannedAt)
		if entry.Status == StatusReady {
			if owner, exists := taken[entry.Name]; exists {
				entry.Status = StatusInvalid
				entry.Diagnostics = append(entry.Diagnostics, tool.Diagnostic{
					Field:    "name",
					Code:     CodeDuplicateName,
					Severity: tool.SeverityError,
					Message:  fmt.Sprintf("tool name %q is already provided by %s", entry.Name, owner),
				})
			} else {
				taken[entry.Name] = entry.ExecutablePath
			}
		}

		logger.Debug("catalog entry", "name", entry.Name, "status", entry.Status, "metadata", entry.Metadata.String())
		snapshot.Entries = append(snapshot.Entries, entry)
	}

	sortEntries(snapshot.Entries)
	counts := snapshot.Counts()
	logger.Info("catalog built",
		"tools", len(snapshot.Entries),
		"ready", counts[StatusReady],
		"invalid", counts[StatusInvalid],
		"unresolved", counts[StatusUnresolved],
		"warnings", len(snapshot.Warnings),
	)
	observe("")
	return snapshot, nil
}

func loadEntry(d scanner.DiscoveredTool, dir string, now time.Time) Entry {
	entry := Entry{
		Name:           fallbackName(d.ExecutablePath),
		Directory:      dir,
		ExecutablePath: d.ExecutablePath,
		Metadata:       d.Metadata,
		UpdatedAt:      now,
	}

	if !d.Metadata.IsSidecar() {
		entry.Status = StatusUnresolved
		return entry
	}

	def, err := tool.ParseFile(d.Metadata.Path)
	if err != nil {
		entry.Status = StatusInvalid
		var parseErr *tool.ParseError
		if errors.As(err, &parseErr) {
			entry.Diagnostics = parseErr.Diagnostics
		} else {
			entry.Diagnostics = []tool.Diagnostic{{
				Code:     CodeReadFailed,
				Severity: tool.SeverityError,
				Message:  err.Error(),
			}}
		}
		return entry
	}

	entry.Name = def.Name
	entry.Status = StatusReady
	entry.Definition = &def
	return entry
}

func loadIgnoreMatcher(dir, name string) (*ignore.GitIgnore, error) {
	if name == "-" {
		return nil, nil
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	// #nosec G304 -- the ignore file lives in the directory being scanned.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: read ignore file: %w", err)
	}
	return ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...), nil
}
