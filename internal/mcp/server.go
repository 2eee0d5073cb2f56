// Package mcp exposes the snapshot service to language-model agents over the
// Model Context Protocol.
//
// This is a composition root: it creates the tool handlers and registers
// them on the server. No snapshot logic lives here; tools translate
// arguments, call the service, and render results as text.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"snapkeep/internal/snap"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with every snapshot tool
// registered.
func New(svc *snap.Service) *server.MCPServer {
	s := server.NewMCPServer(
		"snapkeep",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	saveTool := NewSaveTool(svc)
	s.AddTool(saveTool.Definition(), saveTool.Handle)

	restoreTool := NewRestoreTool(svc)
	s.AddTool(restoreTool.Definition(), restoreTool.Handle)

	checkTool := NewCheckTool(svc)
	s.AddTool(checkTool.Definition(), checkTool.Handle)

	listTool := NewListTool(svc)
	s.AddTool(listTool.Definition(), listTool.Handle)

	listDirTool := NewListDirectoryTool(svc)
	s.AddTool(listDirTool.Definition(), listDirTool.Handle)

	searchTool := NewSearchTool(svc)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	infoTool := NewInfoTool(svc)
	s.AddTool(infoTool.Definition(), infoTool.Handle)

	clearTool := NewClearTool(svc)
	s.AddTool(clearTool.Definition(), clearTool.Handle)

	viewTool := NewViewTool(svc)
	s.AddTool(viewTool.Definition(), viewTool.Handle)

	exportTool := NewExportTool(svc)
	s.AddTool(exportTool.Definition(), exportTool.Handle)

	compareTool := NewCompareTool(svc)
	s.AddTool(compareTool.Definition(), compareTool.Handle)

	exclusionAddTool := NewExclusionAddTool(svc)
	s.AddTool(exclusionAddTool.Definition(), exclusionAddTool.Handle)

	exclusionRemoveTool := NewExclusionRemoveTool(svc)
	s.AddTool(exclusionRemoveTool.Definition(), exclusionRemoveTool.Handle)

	exclusionListTool := NewExclusionListTool(svc)
	s.AddTool(exclusionListTool.Definition(), exclusionListTool.Handle)

	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func serverInstructions() string {
	return `snapkeep keeps point-in-time snapshots of files. Content is stored
deduplicated by SHA-256 fingerprint, so saving an unchanged file is free.

Typical flow:
- snap_save before risky edits, snap_check to see what drifted,
  snap_restore to roll back.
- Snapshots are selected by fingerprint prefix or "latest". If a prefix is
  ambiguous the tool lists the candidates; retry with a longer prefix.
- snap_view returns text content inline; binary or oversized snapshots must
  be exported with snap_export instead.
- Exclusion rules (directory, extension, file) prune directory walks for
  snap_save and snap_check. They never delete existing snapshots.`
}
