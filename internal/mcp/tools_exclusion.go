package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"snapkeep/internal/snap"
)

// ExclusionAddTool handles the snap_exclusion_add MCP tool.
type ExclusionAddTool struct {
	svc *snap.Service
}

// NewExclusionAddTool creates an ExclusionAddTool backed by the given service.
func NewExclusionAddTool(svc *snap.Service) *ExclusionAddTool {
	return &ExclusionAddTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_exclusion_add.
func (t *ExclusionAddTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_exclusion_add",
		mcp.WithDescription(
			"Add an exclusion rule for directory walks. Kinds: 'directory' matches a "+
				"path component substring, 'extension' matches a file extension, 'file' "+
				"matches an exact file name. Rules apply to future saves and checks only.",
		),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Pattern to match (e.g. 'node_modules', 'log', 'secrets.txt')"),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Rule kind: directory, extension, or file"),
		),
	)
}

// Handle processes the snap_exclusion_add tool call.
func (t *ExclusionAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern := req.GetString("pattern", "")
	kind := req.GetString("kind", "")
	if pattern == "" || kind == "" {
		return mcp.NewToolResultError("'pattern' and 'kind' are required"), nil
	}

	if err := t.svc.AddExclusion(pattern, kind); err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Exclusion added: %s (%s)", pattern, kind)), nil
}

// ─── ExclusionRemoveTool ────────────────────────────────────────────────────

// ExclusionRemoveTool handles the snap_exclusion_remove MCP tool.
type ExclusionRemoveTool struct {
	svc *snap.Service
}

// NewExclusionRemoveTool creates an ExclusionRemoveTool backed by the given service.
func NewExclusionRemoveTool(svc *snap.Service) *ExclusionRemoveTool {
	return &ExclusionRemoveTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_exclusion_remove.
func (t *ExclusionRemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_exclusion_remove",
		mcp.WithDescription("Remove every exclusion rule with the given pattern."),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Pattern of the rule(s) to remove"),
		),
	)
}

// Handle processes the snap_exclusion_remove tool call.
func (t *ExclusionRemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern := req.GetString("pattern", "")
	if pattern == "" {
		return mcp.NewToolResultError("'pattern' is required"), nil
	}

	n, err := t.svc.RemoveExclusion(pattern)
	if err != nil {
		return errResult(err), nil
	}
	if n == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No exclusion matches %q.", pattern)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed %d exclusion rule(s).", n)), nil
}

// ─── ExclusionListTool ──────────────────────────────────────────────────────

// ExclusionListTool handles the snap_exclusion_list MCP tool.
type ExclusionListTool struct {
	svc *snap.Service
}

// NewExclusionListTool creates an ExclusionListTool backed by the given service.
func NewExclusionListTool(svc *snap.Service) *ExclusionListTool {
	return &ExclusionListTool{svc: svc}
}

// Definition returns the MCP tool definition for snap_exclusion_list.
func (t *ExclusionListTool) Definition() mcp.Tool {
	return mcp.NewTool("snap_exclusion_list",
		mcp.WithDescription("List the active exclusion rules."),
	)
}

// Handle processes the snap_exclusion_list tool call.
func (t *ExclusionListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules, err := t.svc.Exclusions()
	if err != nil {
		return errResult(err), nil
	}
	if len(rules) == 0 {
		return mcp.NewToolResultText("No exclusion rules configured."), nil
	}

	var b strings.Builder
	for _, rule := range rules {
		fmt.Fprintf(&b, "%-10s %s\n", rule.Kind, rule.Pattern)
	}
	fmt.Fprintf(&b, "%d rule(s)", len(rules))
	return mcp.NewToolResultText(b.String()), nil
}
