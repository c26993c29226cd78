// Package render converts Markdown to HTML.
//
// The backend is a closed choice made once at startup with [New]: the GitHub
// Markdown API ([KindGitHub]) or the local goldmark parser ([KindOffline]).
// Every failure surfaces as a [*UnavailableError] carrying the reason and the
// Markdown that could not be converted.
package render
