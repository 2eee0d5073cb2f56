package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"snapkeep/internal/snap"
)

// SaveTool handles the snap_save MCP tool.
type SaveTool struct {
	svc *snap.Service
}

// NewSaveTool creates a SaveTool backed by the given service.
func NewSaveTool(svc *snap.Service) *SaveTool {
	return &SaveTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_save.
func (t *SaveTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_save",
		mcp.WithDescription(
			"Snapshot a file or directory. Directories are walked recursively with "+
				"exclusion rules applied. Unchanged content is deduplicated and creates no new record.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File or directory to snapshot"),
		),
	)
}

// Handle processes the snap_save tool call.
func (t *SaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	report, err := t.svc.Capture(path)
	if err != nil && report == nil {
		return errResult(err), nil
	}

	msg := fmt.Sprintf("Captured %d file(s), %d new snapshot(s) recorded.",
		report.FilesSeen, report.RecordsCreated)
	if err != nil {
		msg += fmt.Sprintf("\nSome files failed: %v", err)
	}
	return mcp.NewToolResultText(msg), nil
}

// ─── RestoreTool ────────────────────────────────────────────────────────────

// RestoreTool handles the snap_restore MCP tool.
type RestoreTool struct {
	svc *snap.Service
}

// NewRestoreTool creates a RestoreTool backed by the given service.
func NewRestoreTool(svc *snap.Service) *RestoreTool {
	return &RestoreTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_restore.
func (t *RestoreTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_restore",
		mcp.WithDescription(
			"Restore snapshot content back to its original location. For a directory, "+
				"the newest snapshot of every file underneath is restored. Writes are atomic.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Original file or directory path (may no longer exist on disk)"),
		),
		mcp.WithString("fingerprint",
			mcp.Description("Fingerprint prefix selecting a specific snapshot (default: latest). Files only."),
		),
	)
}

// Handle processes the snap_restore tool call.
func (t *RestoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	selector := req.GetString("fingerprint", snap.SelectorLatest)

	report, err := t.svc.Restore(path, selector)
	if err != nil && report == nil {
		return errResult(err), nil
	}

	msg := fmt.Sprintf("Restored %d file(s):", report.FilesRestored)
	for _, rec := range report.Records {
		msg += fmt.Sprintf("\n  %s (%s, %s)", rec.Path, shortFingerprint(rec.Fingerprint), rec.CapturedAt)
	}
	if err != nil {
		msg += fmt.Sprintf("\nSome files failed: %v", err)
	}
	return mcp.NewToolResultText(msg), nil
}

// ─── CheckTool ──────────────────────────────────────────────────────────────

// CheckTool handles the snap_check MCP tool.
type CheckTool struct {
	svc *snap.Service
}

// NewCheckTool creates a CheckTool backed by the given service.
func NewCheckTool(svc *snap.Service) *CheckTool {
	return &CheckTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_check.
func (t *CheckTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_check",
		mcp.WithDescription(
			"Compare live content against the latest snapshots without changing anything. "+
				"Reports each file as unchanged, modified, or new.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File or directory to check"),
		),
	)
}

// Handle processes the snap_check tool call.
func (t *CheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	report, err := t.svc.Check(path)
	if err != nil && report == nil {
		return errResult(err), nil
	}

	msg := ""
	for _, fc := range report.Files {
		msg += fmt.Sprintf("%-12s %s\n", fc.State, fc.Path)
	}
	msg += fmt.Sprintf("%d unchanged, %d modified, %d without snapshots",
		report.Unchanged, report.Modified, report.New)
	if err != nil {
		msg += fmt.Sprintf("\nSome files failed: %v", err)
	}
	return mcp.NewToolResultText(msg), nil
}
