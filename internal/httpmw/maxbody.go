package httpmw

import "net/http"

// MaxBody caps request bodies. Preview routes accept only GET and HEAD, so
// the server runs this with a tiny limit; a handler that reads past it gets
// an *http.MaxBytesError and net/http answers 413.
func MaxBody(bytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, bytes)
			next.ServeHTTP(w, r)
		})
	}
}
