// Package content resolves resource identifiers to Markdown text.
//
// A [Source] returns the raw text of a resource together with the digest of
// exactly those bytes. Two sources exist:
//   - [FileSource]: files below a root folder, opened through an os.Root so
//     lookups cannot leave the folder
//   - [S3Source]: objects below a bucket prefix
//
// Lookups fail with a [*NotFoundError] or [ErrNotMarkdown]; every lower-level
// error is folded into one of the two. [Watcher] re-fetches one resource on a
// fixed interval and reports digest changes, which drives live updates.
package content
