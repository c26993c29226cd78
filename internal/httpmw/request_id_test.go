package httpmw

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"set", WithRequestID(context.Background(), "preview-1"), "preview-1"},
		{"empty is not stored", WithRequestID(context.Background(), ""), ""},
		{"bare context", context.Background(), ""},
	}
	for _, tt := range tests {
		if got := RequestIDFromContext(tt.ctx); got != tt.want {
			t.Errorf("%s: RequestIDFromContext = %q, want %q", tt.name, got, tt.want)
		}
	}
}

// runRequestID sends one request through RequestID(header) and returns the
// ID the handler saw plus the recorder.
func runRequestID(t *testing.T, header, sendHeader, inbound string) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var seen string
	h := RequestID(header)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/README.md", http.NoBody)
	if inbound != "" {
		req.Header.Set(sendHeader, inbound)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec
}

func TestRequestID_Middleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		inbound    string
		wantHeader string
		keep       bool
	}{
		{"generated", "", "", DefaultRequestIDHeader, false},
		{"propagated", "", "edge-7f3a:1", DefaultRequestIDHeader, true},
		{"custom header", "X-Correlation-Id", "corr.42", "X-Correlation-Id", true},
		{"header injection", "", "abc\r\nX-Evil: 1", DefaultRequestIDHeader, false},
		{"space", "", "abc def", DefaultRequestIDHeader, false},
		{"too long", "", strings.Repeat("a", maxRequestIDLen+1), DefaultRequestIDHeader, false},
		{"non ascii", "", "idé", DefaultRequestIDHeader, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, rec := runRequestID(t, tt.header, tt.wantHeader, tt.inbound)

			if got := rec.Header().Get(tt.wantHeader); got != seen {
				t.Fatalf("response %s = %q, context = %q", tt.wantHeader, got, seen)
			}
			if tt.keep {
				if seen != tt.inbound {
					t.Fatalf("id = %q, want inbound %q", seen, tt.inbound)
				}
				return
			}
			if seen == tt.inbound {
				t.Fatal("inbound id should have been replaced")
			}
			if b, err := hex.DecodeString(seen); err != nil || len(b) != 16 {
				t.Fatalf("generated id = %q, want 32 hex chars", seen)
			}
		})
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, _ := runRequestID(t, "", "", "")
		if seen[id] {
			t.Fatalf("duplicate id %q after %d requests", id, i)
		}
		seen[id] = true
	}
}

func TestValidRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"a", true},
		{"1-5f84c7a1:abc", true},
		{"span.1_2", true},
		{strings.Repeat("x", maxRequestIDLen), true},
		{"", false},
		{"a/b", false},
		{"a\x00b", false},
		{strings.Repeat("x", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		if got := validRequestID(tt.id); got != tt.want {
			t.Errorf("validRequestID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
