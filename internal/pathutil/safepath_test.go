package pathutil

import (
	"strings"
	"testing"
)

func TestHasDotSegments(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"docs/guide.md", false},
		{"docs/./guide.md", true},
		{"docs/../README.md", true},
		{"..", true},
		{"...md", false},
		{".github/CONTRIBUTING.md", false},
		{"docs/.", true},
	}
	for _, tt := range tests {
		if got := HasDotSegments(tt.path); got != tt.want {
			t.Errorf("HasDotSegments(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCleanRel(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"README.md", "README.md", true},
		{"./docs/guide.md", "docs/guide.md", true},
		{"/docs//guide.md", "docs/guide.md", true},
		{".github/SECURITY.md", ".github/SECURITY.md", true},
		{"./../secret.md", "", false},
		{"docs/../../etc/passwd", "", false},
		{"docs\\guide.md", "", false},
		{"a\x00.md", "", false},
		{"/", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := CleanRel(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("CleanRel(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestJoinKey(t *testing.T) {
	tests := []struct{ prefix, rel, want string }{
		{"", "README.md", "README.md"},
		{"site", "docs/a.md", "site/docs/a.md"},
		{"/site/", "a.md", "site/a.md"},
	}
	for _, tt := range tests {
		if got := JoinKey(tt.prefix, tt.rel); got != tt.want {
			t.Errorf("JoinKey(%q, %q) = %q, want %q", tt.prefix, tt.rel, got, tt.want)
		}
	}
}

func FuzzCleanRel(f *testing.F) {
	for _, s := range []string{"README.md", "./docs/a.md", "../x", "a/../../b", "/./"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, p string) {
		rel, ok := CleanRel(p)
		if !ok {
			return
		}
		if strings.HasPrefix(rel, "/") || HasDotSegments(rel) || rel == "" {
			t.Fatalf("CleanRel(%q) = %q escapes the root", p, rel)
		}
	})
}
