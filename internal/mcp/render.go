package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"snapkeep/internal/model"
	"snapkeep/internal/snap"
)

// shortFingerprint truncates a fingerprint for display. Full fingerprints
// stay available through snap_snapshot_info.
func shortFingerprint(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}

// formatSize renders a byte count with a binary unit suffix.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatRecord(rec *model.SnapshotRecord) string {
	return fmt.Sprintf("%s  %s  %s  %s",
		shortFingerprint(rec.Fingerprint), rec.CapturedAt, formatSize(rec.Size), rec.Path)
}

func formatRecords(records []*model.SnapshotRecord) string {
	if len(records) == 0 {
		return "No snapshots found."
	}
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(formatRecord(rec))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d snapshot(s)", len(records))
	return b.String()
}

// errResult converts a service error into a tool error result. Ambiguous
// fingerprint prefixes enumerate their candidates so the caller can retry
// with a longer prefix.
func errResult(err error) *mcp.CallToolResult {
	var ambiguous *snap.AmbiguousSelectorError
	if errors.As(err, &ambiguous) {
		var b strings.Builder
		fmt.Fprintf(&b, "Fingerprint prefix %q matches %d snapshots:\n",
			ambiguous.Prefix, len(ambiguous.Candidates))
		for _, fp := range ambiguous.Candidates {
			b.WriteString("  " + fp + "\n")
		}
		b.WriteString("Retry with a longer prefix.")
		return mcp.NewToolResultError(b.String())
	}
	return mcp.NewToolResultError(err.Error())
}
