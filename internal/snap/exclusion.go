package snap

import (
	"path/filepath"
	"strings"

	"snapkeep/internal/model"
)

// ExclusionFilter evaluates a fixed rule set against paths during a directory
// walk. The rule set is injected at construction; the filter never reads
// configuration on its own.
type ExclusionFilter struct {
	rules []*model.Exclusion
}

// NewExclusionFilter creates a filter over the given rules. A nil or empty
// rule set excludes nothing.
func NewExclusionFilter(rules []*model.Exclusion) *ExclusionFilter {
	return &ExclusionFilter{rules: rules}
}

// Excluded reports whether path matches any rule. Rules are unordered and
// combined with OR; evaluation short-circuits on the first match.
//
//   - directory rules match by substring containment on the path, and only
//     apply when the path is a directory
//   - extension rules match the file extension, case-sensitively; the stored
//     pattern may carry a leading dot, which is stripped before comparing
//   - file rules match the exact base name
func (f *ExclusionFilter) Excluded(path string, isDir bool) bool {
	for _, rule := range f.rules {
		switch rule.Kind {
		case model.ExcludeDirectory:
			if isDir && strings.Contains(path, rule.Pattern) {
				return true
			}
		case model.ExcludeExtension:
			ext := strings.TrimPrefix(filepath.Ext(path), ".")
			if !isDir && ext != "" && ext == strings.TrimPrefix(rule.Pattern, ".") {
				return true
			}
		case model.ExcludeFile:
			if !isDir && filepath.Base(path) == rule.Pattern {
				return true
			}
		}
	}
	return false
}
