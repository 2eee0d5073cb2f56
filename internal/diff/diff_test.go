package diff

import (
	"strings"
	"testing"
)

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"plain text", []byte("hello\nworld\n"), false},
		{"empty", nil, false},
		{"nul byte", []byte{'a', 0x00, 'b'}, true},
		{"nul past sniff window", append([]byte(strings.Repeat("x", SniffLen)), 0x00), false},
		{"utf8 text", []byte("héllo wörld"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBinary(tt.buf); got != tt.want {
				t.Errorf("IsBinary() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		res, err := Compare("a", "b", []byte("same\n"), []byte("same\n"))
		if err != nil {
			t.Fatalf("Compare() error = %v", err)
		}
		if !res.Equal || res.Unified != "" {
			t.Errorf("res = %+v, want equal with empty diff", res)
		}
		if res.Summary() != "identical" {
			t.Errorf("Summary() = %q", res.Summary())
		}
	})

	t.Run("line changes counted", func(t *testing.T) {
		source := "one\ntwo\nthree\n"
		target := "one\n2\nthree\nfour\n"
		res, err := Compare("old", "new", []byte(source), []byte(target))
		if err != nil {
			t.Fatalf("Compare() error = %v", err)
		}
		if res.Added != 2 || res.Removed != 1 {
			t.Errorf("added/removed = %d/%d, want 2/1", res.Added, res.Removed)
		}
		if !strings.Contains(res.Unified, "--- old") || !strings.Contains(res.Unified, "+++ new") {
			t.Errorf("diff missing file headers:\n%s", res.Unified)
		}
		if res.Summary() != "+2 -1 lines" {
			t.Errorf("Summary() = %q", res.Summary())
		}
	})

	t.Run("binary by size", func(t *testing.T) {
		res, err := Compare("a", "b", []byte{0x00, 0x01}, []byte{0x00, 0x01, 0x02})
		if err != nil {
			t.Fatalf("Compare() error = %v", err)
		}
		if !res.Binary || res.Unified != "" {
			t.Errorf("res = %+v, want binary with no unified diff", res)
		}
		if !strings.Contains(res.Summary(), "1 bytes larger") {
			t.Errorf("Summary() = %q", res.Summary())
		}
	})

	t.Run("equal binary", func(t *testing.T) {
		res, err := Compare("a", "b", []byte{0x00, 0x01}, []byte{0x00, 0x01})
		if err != nil {
			t.Fatalf("Compare() error = %v", err)
		}
		if !res.Binary || !res.Equal {
			t.Errorf("res = %+v, want equal binary", res)
		}
	})
}
