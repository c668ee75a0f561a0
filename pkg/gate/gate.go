// Package gate implements the version gate that decides whether a
// pipeline run should proceed. The decision is a typed value, never a
// process exit code: when the manifest version is already released, the
// scheduler skips downstream stages and the run still succeeds.
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drops-platform/dropship/pkg/manifest"
	"github.com/drops-platform/dropship/pkg/release"
)

// ReleaseFinder is the slice of the release client the gate needs.
type ReleaseFinder interface {
	ReleaseByTag(ctx context.Context, tag string) (*release.Release, error)
}

// Gate checks the manifest version against existing releases.
type Gate struct {
	client       ReleaseFinder
	manifestPath string
}

// Decision is the gate's verdict for one run.
type Decision struct {
	// Version extracted from the manifest.
	Version string
	// Tag is the release tag derived from Version.
	Tag string
	// ExistingURL points at the already-published release, when there
	// is one.
	ExistingURL string
	// AlreadyReleased reports that a release with Tag exists and all
	// downstream work should be skipped.
	AlreadyReleased bool
}

// New creates a Gate reading the manifest at manifestPath.
func New(manifestPath string, client ReleaseFinder) *Gate {
	return &Gate{
		client:       client,
		manifestPath: manifestPath,
	}
}

// Check loads the manifest, derives the release tag, and queries the
// release platform for it. A missing release means "proceed"; any API
// error other than not-found is fatal.
func (g *Gate) Check(ctx context.Context) (*Decision, error) {
	m, err := manifest.Load(g.manifestPath)
	if err != nil {
		return nil, fmt.Errorf("version gate: %w", err)
	}

	decision := &Decision{
		Version: m.Version,
		Tag:     m.Tag(),
	}

	existing, err := g.client.ReleaseByTag(ctx, decision.Tag)
	if err != nil {
		if release.IsNotFound(err) {
			slog.Info("no release for tag, proceeding",
				slog.String("tag", decision.Tag),
			)

			return decision, nil
		}

		return nil, fmt.Errorf("version gate: %w", err)
	}

	decision.AlreadyReleased = true
	decision.ExistingURL = existing.HTMLURL

	slog.Info("release already exists",
		slog.String("tag", decision.Tag),
		slog.String("url", existing.HTMLURL),
	)

	return decision, nil
}
