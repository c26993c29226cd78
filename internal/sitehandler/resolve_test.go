package sitehandler

import "testing"

func TestResolvePage(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		wantResource string
		wantTitle    string
	}{
		{"root slash", "/", "README.md", "README.md"},
		{"empty string treated as root", "", "README.md", "README.md"},
		{"top level file", "/CHANGELOG.md", "./CHANGELOG.md", "CHANGELOG.md"},
		{"nested file", "/docs/guide/setup.md", "./docs/guide/setup.md", "setup.md"},
		{"missing leading slash", "notes.md", "./notes.md", "notes.md"},
		{"non markdown kept as is", "/main.go", "./main.go", "main.go"},
		{"trailing slash", "/docs/", "./docs/", "docs"},
		{"dot segments left for the source", "/a/../b.md", "./a/../b.md", "b.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resource, title := resolvePage(tt.path)
			if resource != tt.wantResource {
				t.Errorf("resource = %q, want %q", resource, tt.wantResource)
			}
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
		})
	}
}

func TestResolveLive(t *testing.T) {
	tests := []struct {
		rest string
		want string
	}{
		{"", "README.md"},
		{"/", "README.md"},
		{"/README.md", "./README.md"},
		{"/docs/a.md", "./docs/a.md"},
	}
	for _, tt := range tests {
		if got := resolveLive(tt.rest); got != tt.want {
			t.Errorf("resolveLive(%q) = %q, want %q", tt.rest, got, tt.want)
		}
	}
}
