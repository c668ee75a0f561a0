// Package publish implements the release publisher: it pulls the
// builders' archives out of the transient artifact store, deletes the
// transient copies, re-derives the manifest version, and creates the
// tagged release with all archives and a checksums.txt attached.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/drops-platform/dropship/pkg/archive"
	"github.com/drops-platform/dropship/pkg/artifact"
	"github.com/drops-platform/dropship/pkg/build"
	"github.com/drops-platform/dropship/pkg/manifest"
	"github.com/drops-platform/dropship/pkg/notes"
	"github.com/drops-platform/dropship/pkg/release"
)

const checksumsName = "checksums.txt"

var (
	// ErrVersionChanged means the manifest version no longer matches
	// the version the gate saw, that is, the working tree changed in
	// the middle of a run.
	ErrVersionChanged = errors.New("manifest version changed during run")

	ErrArchiveInvalid = errors.New("archive validation failed")
)

// Store is the slice of the artifact store the publisher needs.
type Store interface {
	Download(ctx context.Context, name, dstPath string) (*artifact.Info, error)
	Delete(ctx context.Context, name string) error
}

// ReleaseClient is the slice of the release API the publisher needs.
type ReleaseClient interface {
	CreateRelease(ctx context.Context, newRelease release.NewRelease) (*release.Release, error)
	UploadAsset(ctx context.Context, releaseID int64, name, contentType string, r io.Reader, size int64) (*release.Asset, error)
}

// Publisher assembles and creates one release.
type Publisher struct {
	store        Store
	client       ReleaseClient
	manifestPath string
	binary       string
	// expectedVersion is the version the gate extracted, when known.
	expectedVersion string
	targets         []build.Target
}

// Option configures a [Publisher].
type Option func(*Publisher)

// WithExpectedVersion makes the publisher fail when its own manifest
// read disagrees with the version the gate saw.
func WithExpectedVersion(version string) Option {
	return func(p *Publisher) {
		p.expectedVersion = version
	}
}

// New creates a Publisher for the given targets.
func New(
	manifestPath, binary string, targets []build.Target,
	store Store, client ReleaseClient, opts ...Option,
) *Publisher {
	p := &Publisher{
		store:        store,
		client:       client,
		manifestPath: manifestPath,
		binary:       binary,
		targets:      targets,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run performs the publish stage and returns the created release.
// Transient artifacts are deleted only after every download succeeded;
// an existing release for the tag fails the run (no update-in-place).
func (p *Publisher) Run(ctx context.Context) (_ *release.Release, err error) {
	m, err := manifest.Load(p.manifestPath)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	if p.expectedVersion != "" && m.Version != p.expectedVersion {
		return nil, fmt.Errorf("%w: gate saw %q, publisher read %q",
			ErrVersionChanged, p.expectedVersion, m.Version)
	}

	tmpDir := filepath.Join(os.TempDir(), "dropship-publish-"+uuid.NewString())
	if mkErr := os.MkdirAll(tmpDir, 0o750); mkErr != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", mkErr)
	}

	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to remove temp dir: %w", rmErr))
		}
	}()

	if err := p.downloadArchives(ctx, tmpDir); err != nil {
		return nil, err
	}

	// All downloads succeeded; the transient copies can go.
	for _, target := range p.targets {
		if err := p.store.Delete(ctx, target.ArchiveName); err != nil {
			return nil, fmt.Errorf("publish: failed to delete transient artifact: %w", err)
		}
	}

	archives, err := filepath.Glob(filepath.Join(tmpDir, "*.zip"))
	if err != nil {
		return nil, fmt.Errorf("publish: failed to glob archives: %w", err)
	}

	slices.Sort(archives)

	entries, err := notes.ChecksumFiles(archives)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	checksumsPath := filepath.Join(tmpDir, checksumsName)
	if err := os.WriteFile(checksumsPath, []byte(notes.ChecksumsText(entries)), 0o600); err != nil {
		return nil, fmt.Errorf("publish: failed to write checksums: %w", err)
	}

	body, err := notes.Render(p.binary, m.Tag(), time.Now(), entries)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	rel, err := p.client.CreateRelease(ctx, release.NewRelease{
		TagName:              m.Tag(),
		Name:                 m.Tag(),
		Body:                 body,
		GenerateReleaseNotes: true,
	})
	if err != nil {
		return nil, fmt.Errorf("publish: failed to create release %s: %w", m.Tag(), err)
	}

	for _, path := range archives {
		if err := p.uploadFile(ctx, rel.ID, path, "application/zip"); err != nil {
			return nil, err
		}
	}

	if err := p.uploadFile(ctx, rel.ID, checksumsPath, "text/plain; charset=utf-8"); err != nil {
		return nil, err
	}

	slog.Info("published release",
		slog.String("tag", rel.TagName),
		slog.Int("archives", len(archives)),
		slog.String("url", rel.HTMLURL),
	)

	return rel, nil
}

// downloadArchives pulls every target's archive into dstDir in parallel
// and validates the single-entry invariant on each.
func (p *Publisher) downloadArchives(ctx context.Context, dstDir string) error {
	g, gCtx := errgroup.WithContext(ctx)

	for _, target := range p.targets {
		g.Go(func() error {
			dst := filepath.Join(dstDir, target.ArchiveName)

			if _, err := p.store.Download(gCtx, target.ArchiveName, dst); err != nil {
				return fmt.Errorf("publish: failed to download %q: %w", target.ArchiveName, err)
			}

			names, err := archive.EntryNames(dst)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrArchiveInvalid, err)
			}

			if !slices.Equal(names, []string{target.BinaryName}) {
				return fmt.Errorf("%w: %q has entries %v, want exactly [%s]",
					ErrArchiveInvalid, target.ArchiveName, names, target.BinaryName)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return nil
}

func (p *Publisher) uploadFile(ctx context.Context, releaseID int64, path, contentType string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("publish: failed to open asset: %w", err)
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to close asset: %w", closeErr))
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("publish: failed to stat asset: %w", err)
	}

	name := filepath.Base(path)
	if _, err := p.client.UploadAsset(ctx, releaseID, name, contentType, f, fi.Size()); err != nil {
		return fmt.Errorf("publish: failed to upload asset %q: %w", name, err)
	}

	return nil
}
