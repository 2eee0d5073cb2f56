package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"snapkeep/internal/snap"
)

// ViewTool handles the snap_view MCP tool.
type ViewTool struct {
	svc *snap.Service
}

// NewViewTool creates a ViewTool backed by the given service.
func NewViewTool(svc *snap.Service) *ViewTool {
	return &ViewTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_view.
func (t *ViewTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_view",
		mcp.WithDescription(
			"Return the text content of a snapshot. Binary snapshots and snapshots over "+
				"the size limit are refused; use snap_export for those.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Original file path"),
		),
		mcp.WithString("fingerprint",
			mcp.Description("Fingerprint prefix selecting a specific snapshot (default: latest)"),
		),
	)
}

// Handle processes the snap_view tool call.
func (t *ViewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	selector := req.GetString("fingerprint", snap.SelectorLatest)

	result, err := t.svc.View(path, selector, 0)
	if err != nil {
		if errors.Is(err, snap.ErrTooLarge) {
			return mcp.NewToolResultError(err.Error() + "; use snap_export instead"), nil
		}
		return errResult(err), nil
	}
	if result.Binary {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Snapshot %s of %s is binary (%s); use snap_export to write it to a file.",
			shortFingerprint(result.Record.Fingerprint), result.Record.Path,
			formatSize(result.Record.Size))), nil
	}
	return mcp.NewToolResultText(result.Content), nil
}

// ─── ExportTool ─────────────────────────────────────────────────────────────

// ExportTool handles the snap_export MCP tool.
type ExportTool struct {
	svc *snap.Service
}

// NewExportTool creates an ExportTool backed by the given service.
func NewExportTool(svc *snap.Service) *ExportTool {
	return &ExportTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_export.
func (t *ExportTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_export",
		mcp.WithDescription(
			"Write a snapshot's content to a new location, decompressed. The original "+
				"file and its history are untouched.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Original file path"),
		),
		mcp.WithString("destination",
			mcp.Required(),
			mcp.Description("Destination file, or an existing directory to export into"),
		),
		mcp.WithString("fingerprint",
			mcp.Description("Fingerprint prefix selecting a specific snapshot (default: latest)"),
		),
	)
}

// Handle processes the snap_export tool call.
func (t *ExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	destination := req.GetString("destination", "")
	if path == "" || destination == "" {
		return mcp.NewToolResultError("'path' and 'destination' are required"), nil
	}
	selector := req.GetString("fingerprint", snap.SelectorLatest)

	dest, err := t.svc.Export(path, selector, destination)
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText("Exported to " + dest), nil
}

// ─── CompareTool ────────────────────────────────────────────────────────────

// CompareTool handles the snap_compare MCP tool.
type CompareTool struct {
	svc *snap.Service
}

// NewCompareTool creates a CompareTool backed by the given service.
func NewCompareTool(svc *snap.Service) *CompareTool {
	return &CompareTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_compare.
func (t *CompareTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_compare",
		mcp.WithDescription(
			"Diff two versions of a file. Selectors are fingerprint prefixes, \"latest\", "+
				"or \"current\" for the live file. Defaults compare the latest snapshot "+
				"against the live file. Binary content is compared by size only.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File whose versions to compare"),
		),
		mcp.WithString("source",
			mcp.Description("Source selector (default: latest)"),
		),
		mcp.WithString("target",
			mcp.Description("Target selector (default: current)"),
		),
	)
}

// Handle processes the snap_compare tool call.
func (t *CompareTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	result, err := t.svc.Compare(path, req.GetString("source", ""), req.GetString("target", ""))
	if err != nil {
		return errResult(err), nil
	}

	header := fmt.Sprintf("%s: %s vs %s: %s",
		result.Path, result.SourceName, result.TargetName, result.Diff.Summary())
	if result.Diff.Equal || result.Diff.Binary {
		return mcp.NewToolResultText(header), nil
	}
	return mcp.NewToolResultText(header + "\n\n" + result.Diff.Unified), nil
}
