// Package release is a typed REST client for a GitHub-shaped release
// API. It covers the small surface the pipeline needs: querying a
// release by tag, creating a tagged release, and attaching assets.
// There is no retry or backoff; a failed call surfaces immediately.
package release
