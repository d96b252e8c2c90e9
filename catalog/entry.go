package catalog

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/petal-labs/mcpserve/scanner"
	"github.com/petal-labs/mcpserve/tool"
)

// Status describes whether an entry can be served.
type Status string

const (
	// StatusReady means the sidecar definition parsed cleanly.
	StatusReady Status = "ready"
	// StatusInvalid means the definition failed to parse or clashes with
	// another entry.
	StatusInvalid Status = "invalid"
	// StatusUnresolved means the tool relies on embedded metadata.
	StatusUnresolved Status = "unresolved"
)

const (
	// CodeDuplicateName marks an entry whose tool name is already taken.
	CodeDuplicateName = "DUPLICATE_NAME"
	// CodeReadFailed marks a sidecar that could not be read.
	CodeReadFailed = "READ_FAILED"
)

// Entry is one discovered executable and its loaded definition.
type Entry struct {
	Name           string                 `json:"name"`
	Directory      string                 `json:"directory"`
	ExecutablePath string                 `json:"executable_path"`
	Metadata       scanner.MetadataSource `json:"metadata"`
	Status         Status                 `json:"status"`
	Definition     *tool.ToolDefinition   `json:"definition,omitempty"`
	Diagnostics    []tool.Diagnostic      `json:"diagnostics,omitempty"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Key identifies the entry in a Store.
func (e Entry) Key() string {
	return e.ExecutablePath
}

// sameContent reports whether two entries would serve the same tool,
// ignoring timestamps.
func sameContent(a, b Entry) bool {
	if a.Name != b.Name || a.Status != b.Status || a.Metadata != b.Metadata {
		return false
	}
	if len(a.Diagnostics) != len(b.Diagnostics) {
		return false
	}
	for i := range a.Diagnostics {
		if a.Diagnostics[i] != b.Diagnostics[i] {
			return false
		}
	}
	switch {
	case a.Definition == nil && b.Definition == nil:
		return true
	case a.Definition == nil || b.Definition == nil:
		return false
	default:
		return tool.Equal(*a.Definition, *b.Definition)
	}
}

func cloneEntry(in Entry) Entry {
	out := in
	if in.Definition != nil {
		def := in.Definition.Clone()
		out.Definition = &def
	}
	out.Diagnostics = slices.Clone(in.Diagnostics)
	return out
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i := range in {
		out[i] = cloneEntry(in[i])
	}
	return out
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Key(), b.Key())
	})
}

// Snapshot is the result of one catalog build.
type Snapshot struct {
	ID        string    `json:"id"`
	Directory string    `json:"directory"`
	ScannedAt time.Time `json:"scanned_at"`
	Entries   []Entry   `json:"entries"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// Counts returns the number of entries per status.
func (s Snapshot) Counts() map[Status]int {
	counts := map[Status]int{
		StatusReady:      0,
		StatusInvalid:    0,
		StatusUnresolved: 0,
	}
	for _, entry := range s.Entries {
		counts[entry.Status]++
	}
	return counts
}

// MCPTools projects every ready entry, sorted by tool name.
func (s Snapshot) MCPTools() []tool.MCPTool {
	return MCPTools(s.Entries)
}

// MCPTools projects every ready entry, sorted by tool name.
func MCPTools(entries []Entry) []tool.MCPTool {
	tools := make([]tool.MCPTool, 0, len(entries))
	for _, entry := range entries {
		if entry.Status != StatusReady || entry.Definition == nil {
			continue
		}
		tools = append(tools, entry.Definition.ToMCPTool())
	}
	slices.SortFunc(tools, func(a, b tool.MCPTool) int {
		return strings.Compare(a.Name, b.Name)
	})
	return tools
}

// ListToolsResult renders the snapshot's ready entries as an MCP tools/list
// result.
func (s Snapshot) ListToolsResult() (mcp.ListToolsResult, error) {
	return ListToolsResult(s.Entries)
}

// ListToolsResult renders ready entries as an MCP tools/list result.
func ListToolsResult(entries []Entry) (mcp.ListToolsResult, error) {
	projected := MCPTools(entries)
	tools := make([]mcp.Tool, 0, len(projected))
	for _, t := range projected {
		sdkTool, err := t.SDKTool()
		if err != nil {
			return mcp.ListToolsResult{}, fmt.Errorf("catalog: %w", err)
		}
		tools = append(tools, sdkTool)
	}
	return mcp.ListToolsResult{Tools: tools}, nil
}

func fallbackName(executablePath string) string {
	return filepath.Base(executablePath)
}
