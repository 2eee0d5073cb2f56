package snap

import (
	"testing"

	"snapkeep/internal/model"
)

func rule(pattern, kind string) *model.Exclusion {
	return &model.Exclusion{Pattern: pattern, Kind: kind}
}

func TestExclusionFilter(t *testing.T) {
	tests := []struct {
		name  string
		rules []*model.Exclusion
		path  string
		isDir bool
		want  bool
	}{
		{"no rules", nil, "/p/file.txt", false, false},
		{"directory substring matches dir", []*model.Exclusion{rule("node_modules", model.ExcludeDirectory)}, "/p/node_modules", true, true},
		{"directory rule ignores files", []*model.Exclusion{rule("node_modules", model.ExcludeDirectory)}, "/p/node_modules.txt", false, false},
		{"directory substring anywhere in path", []*model.Exclusion{rule("cache", model.ExcludeDirectory)}, "/p/my-cache/sub", true, true},
		{"extension match", []*model.Exclusion{rule("log", model.ExcludeExtension)}, "/p/app.log", false, true},
		{"extension with leading dot", []*model.Exclusion{rule(".log", model.ExcludeExtension)}, "/p/app.log", false, true},
		{"extension is case sensitive", []*model.Exclusion{rule("log", model.ExcludeExtension)}, "/p/app.LOG", false, false},
		{"extension rule ignores dirs", []*model.Exclusion{rule("log", model.ExcludeExtension)}, "/p/dir.log", true, false},
		{"file exact base name", []*model.Exclusion{rule("secrets.txt", model.ExcludeFile)}, "/p/deep/secrets.txt", false, true},
		{"file name mismatch", []*model.Exclusion{rule("secrets.txt", model.ExcludeFile)}, "/p/secrets.txt.bak", false, false},
		{"unknown kind fails open", []*model.Exclusion{rule("x", "glob")}, "/p/x", false, false},
		{"any rule suffices", []*model.Exclusion{rule("nope", model.ExcludeFile), rule("log", model.ExcludeExtension)}, "/p/a.log", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewExclusionFilter(tt.rules)
			if got := f.Excluded(tt.path, tt.isDir); got != tt.want {
				t.Errorf("Excluded(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
			}
		})
	}
}
