package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"snapkeep/internal/model"
	"snapkeep/internal/snap"
)

// envelope is the JSON shape of every API response.
type envelope struct {
	OK   bool   `json:"ok"`
	Data any    `json:"data,omitempty"`
	Err  string `json:"err,omitempty"`
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{OK: true, Data: data}); err != nil {
		s.logger.Warn("encoding response", "error", err)
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var ambiguous *snap.AmbiguousSelectorError
	switch {
	case errors.Is(err, snap.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, snap.ErrPathInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, snap.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &ambiguous):
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{OK: false, Err: err.Error()})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(envelope{OK: false, Err: msg})
}

// snapshotDTO is the wire form of a snapshot record.
type snapshotDTO struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	CapturedAt  string `json:"captured_at"`
	Size        int64  `json:"size"`
}

func toDTO(rec *model.SnapshotRecord) snapshotDTO {
	return snapshotDTO{
		ID:          rec.ID,
		Path:        rec.Path,
		Fingerprint: rec.Fingerprint,
		CapturedAt:  rec.CapturedAt,
		Size:        rec.Size,
	}
}

func toDTOs(records []*model.SnapshotRecord) []snapshotDTO {
	out := make([]snapshotDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, toDTO(rec))
	}
	return out
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// handleList serves GET /api/snapshots. Optional query parameters: q filters
// by path substring, dir scopes to a directory.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		records []*model.SnapshotRecord
		err     error
	)
	switch {
	case r.URL.Query().Get("q") != "":
		records, err = s.svc.Search(r.URL.Query().Get("q"))
	case r.URL.Query().Get("dir") != "":
		records, err = s.svc.ListDirectory(r.URL.Query().Get("dir"))
	default:
		records, err = s.svc.List()
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, toDTOs(records))
}

// handleCreate serves POST /api/snapshots with body {"path": "..."}.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		s.badRequest(w, "body must be {\"path\": \"...\"}")
		return
	}

	report, err := s.svc.Capture(body.Path)
	if err != nil && report == nil {
		s.respondErr(w, err)
		return
	}

	data := map[string]any{
		"files_seen":      report.FilesSeen,
		"records_created": report.RecordsCreated,
	}
	if err != nil {
		data["partial_error"] = err.Error()
	}
	s.respond(w, http.StatusCreated, data)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid snapshot id")
		return
	}
	rec, err := s.svc.Snapshot(id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, toDTO(rec))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid snapshot id")
		return
	}
	n, err := s.svc.DeleteByID(id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if n == 0 {
		s.respondErr(w, snap.ErrNotFound)
		return
	}
	s.respond(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleContent serves GET /api/snapshots/{id}/content. Binary snapshots are
// flagged rather than inlined.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid snapshot id")
		return
	}
	result, err := s.svc.ViewByID(id, 0)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"binary":  result.Binary,
		"content": result.Content,
	})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid snapshot id")
		return
	}
	rec, err := s.svc.RestoreByID(id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"restored": rec.Path})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid snapshot id")
		return
	}
	var body struct {
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Destination == "" {
		s.badRequest(w, "body must be {\"destination\": \"...\"}")
		return
	}

	dest, err := s.svc.ExportByID(id, body.Destination)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"exported": dest})
}

// handleDiff serves GET /api/diff?path=...&source=...&target=...
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.badRequest(w, "query parameter 'path' is required")
		return
	}

	result, err := s.svc.Compare(path, r.URL.Query().Get("source"), r.URL.Query().Get("target"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"path":    result.Path,
		"source":  result.SourceName,
		"target":  result.TargetName,
		"binary":  result.Diff.Binary,
		"equal":   result.Diff.Equal,
		"added":   result.Diff.Added,
		"removed": result.Diff.Removed,
		"summary": result.Diff.Summary(),
		"unified": result.Diff.Unified,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]int64{
		"total_snapshots": stats.TotalSnapshots,
		"total_bytes":     stats.TotalBytes,
		"stored_bytes":    stats.StoredBytes,
		"exclusions":      stats.Exclusions,
	})
}

func (s *Server) handleExclusionsList(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Exclusions()
	if err != nil {
		s.respondErr(w, err)
		return
	}

	type exclusionDTO struct {
		ID      int64  `json:"id"`
		Pattern string `json:"pattern"`
		Kind    string `json:"kind"`
	}
	out := make([]exclusionDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, exclusionDTO{ID: rule.ID, Pattern: rule.Pattern, Kind: rule.Kind})
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleExclusionsAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pattern string `json:"pattern"`
		Kind    string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Pattern == "" || body.Kind == "" {
		s.badRequest(w, "body must be {\"pattern\": \"...\", \"kind\": \"...\"}")
		return
	}

	if err := s.svc.AddExclusion(body.Pattern, body.Kind); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]string{
		"pattern": body.Pattern,
		"kind":    body.Kind,
	})
}

func (s *Server) handleExclusionsRemove(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		s.badRequest(w, "query parameter 'pattern' is required")
		return
	}
	n, err := s.svc.RemoveExclusion(pattern)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]int64{"removed": n})
}
