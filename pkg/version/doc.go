// Package version exposes the dropship build's version and VCS
// revision, stamped at link time or read from the embedded build info.
package version
