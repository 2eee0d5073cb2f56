package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"snapkeep/internal/snap"
)

// ListTool handles the snap_list MCP tool.
type ListTool struct {
	svc *snap.Service
}

// NewListTool creates a ListTool backed by the given service.
func NewListTool(svc *snap.Service) *ListTool {
	return &ListTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_list",
		mcp.WithDescription("List every snapshot in the store, newest first."),
	)
}

// Handle processes the snap_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := t.svc.List()
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(formatRecords(records)), nil
}

// ─── ListDirectoryTool ──────────────────────────────────────────────────────

// ListDirectoryTool handles the snap_list_directory MCP tool.
type ListDirectoryTool struct {
	svc *snap.Service
}

// NewListDirectoryTool creates a ListDirectoryTool backed by the given service.
func NewListDirectoryTool(svc *snap.Service) *ListDirectoryTool {
	return &ListDirectoryTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_list_directory.
func (t *ListDirectoryTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_list_directory",
		mcp.WithDescription("List snapshots of files at or under a directory, newest first."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Directory to scope the listing to"),
		),
	)
}

// Handle processes the snap_list_directory tool call.
func (t *ListDirectoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	records, err := t.svc.ListDirectory(path)
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(formatRecords(records)), nil
}

// ─── SearchTool ─────────────────────────────────────────────────────────────

// SearchTool handles the snap_search MCP tool.
type SearchTool struct {
	svc *snap.Service
}

// NewSearchTool creates a SearchTool backed by the given service.
func NewSearchTool(svc *snap.Service) *SearchTool {
	return &SearchTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_search",
		mcp.WithDescription("Find snapshots whose path contains a substring, case-insensitively."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Substring to look for in snapshot paths"),
		),
	)
}

// Handle processes the snap_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	records, err := t.svc.Search(query)
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(formatRecords(records)), nil
}

// ─── InfoTool ───────────────────────────────────────────────────────────────

// InfoTool handles the snap_snapshot_info MCP tool.
type InfoTool struct {
	svc *snap.Service
}

// NewInfoTool creates an InfoTool backed by the given service.
func NewInfoTool(svc *snap.Service) *InfoTool {
	return &InfoTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_snapshot_info.
func (t *InfoTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_snapshot_info",
		mcp.WithDescription("Show full details of one snapshot, looked up by fingerprint prefix."),
		mcp.WithString("fingerprint",
			mcp.Required(),
			mcp.Description("Fingerprint prefix (must match exactly one snapshot)"),
		),
	)
}

// Handle processes the snap_snapshot_info tool call.
func (t *InfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fingerprint := req.GetString("fingerprint", "")
	if fingerprint == "" {
		return mcp.NewToolResultError("'fingerprint' is required"), nil
	}

	rec, err := t.svc.Info(fingerprint)
	if err != nil {
		return errResult(err), nil
	}

	msg := fmt.Sprintf("Path:        %s\nFingerprint: %s\nCaptured:    %s\nSize:        %s\nBlob:        %s",
		rec.Path, rec.Fingerprint, rec.CapturedAt, formatSize(rec.Size), rec.BlobPath)
	return mcp.NewToolResultText(msg), nil
}

// ─── ClearTool ──────────────────────────────────────────────────────────────

// ClearTool handles the snap_clear MCP tool.
type ClearTool struct {
	svc *snap.Service
}

// NewClearTool creates a ClearTool backed by the given service.
func NewClearTool(svc *snap.Service) *ClearTool {
	return &ClearTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_clear.
func (t *ClearTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_clear",
		mcp.WithDescription(
			"Delete snapshot records. Blobs no longer referenced by any record are "+
				"reclaimed immediately. This cannot be undone.",
		),
		mcp.WithString("path",
			mcp.Description("Exact file path whose snapshots to delete"),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Treat path as a directory and delete snapshots of everything underneath"),
		),
		mcp.WithBoolean("all",
			mcp.Description("Delete every snapshot in the store"),
		),
	)
}

// Handle processes the snap_clear tool call.
func (t *ClearTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	all := req.GetBool("all", false)
	recursive := req.GetBool("recursive", false)

	var (
		n   int64
		err error
	)
	switch {
	case all:
		n, err = t.svc.DeleteAll()
	case path == "":
		return mcp.NewToolResultError("either 'path' or 'all' is required"), nil
	case recursive:
		n, err = t.svc.DeleteByPathPrefix(path)
	default:
		n, err = t.svc.DeleteByPath(path)
	}
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %d snapshot(s).", n)), nil
}
