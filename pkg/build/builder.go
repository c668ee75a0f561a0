// Package build runs one platform build end to end: compile via the
// configured toolchain command, move the binary to its canonical name,
// package it as a single-entry zip, and upload the archive to the
// transient artifact store. Builders share nothing; each works in its
// own temp directory.
package build

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

	"github.com/drops-platform/dropship/pkg/archive"
	"github.com/drops-platform/dropship/pkg/artifact"
	"github.com/drops-platform/dropship/pkg/execx"
)

var (
	ErrBuildFailed    = errors.New("build command failed")
	ErrNoBinary       = errors.New("build produced no binary")
	ErrArchiveInvalid = errors.New("archive validation failed")
)

// Uploader is the slice of the artifact store a builder needs.
type Uploader interface {
	Upload(ctx context.Context, name, srcPath string) (*artifact.Info, error)
}

// Builder runs one [Target].
type Builder struct {
	runner  execx.Runner
	store   Uploader
	workDir string
	target  Target
}

// Result records a successful build.
type Result struct {
	Target   Target
	Digest   string
	Size     int64
	Duration time.Duration
}

// New creates a Builder for target, running its command in workDir.
func New(target Target, runner execx.Runner, store Uploader, workDir string) *Builder {
	return &Builder{
		runner:  runner,
		store:   store,
		workDir: workDir,
		target:  target,
	}
}

// Run compiles, packages, and uploads the target's archive.
func (b *Builder) Run(ctx context.Context) (_ *Result, err error) {
	start := time.Now()

	logger := slog.With(slog.String("target", b.target.Name))
	logger.Info("building", slog.Any("command", b.target.Command))

	_, runErr := b.runner.Run(
		ctx, b.workDir, b.target.Env,
		b.target.Command[0], b.target.Command[1:]...,
	)
	if runErr != nil {
		return nil, fmt.Errorf("%w: target %q: %w", ErrBuildFailed, b.target.Name, runErr)
	}

	builtPath := b.target.BinaryPath
	if !filepath.IsAbs(builtPath) {
		builtPath = filepath.Join(b.workDir, builtPath)
	}

	if _, statErr := os.Lstat(builtPath); statErr != nil {
		return nil, fmt.Errorf("%w: target %q: %w", ErrNoBinary, b.target.Name, statErr)
	}

	tmpDir := filepath.Join(os.TempDir(), "dropship-build-"+uuid.NewString())
	if mkErr := os.MkdirAll(tmpDir, 0o750); mkErr != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", mkErr)
	}

	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to remove temp dir: %w", rmErr))
		}
	}()

	// Move to the canonical name before packaging, so the archive's
	// single entry is what the client updater expects to extract.
	canonicalPath := filepath.Join(tmpDir, b.target.BinaryName)
	if err := moveFile(builtPath, canonicalPath); err != nil {
		return nil, fmt.Errorf("target %q: %w", b.target.Name, err)
	}

	archivePath := filepath.Join(tmpDir, b.target.ArchiveName)
	if err := archive.WriteFileZip(archivePath, canonicalPath, b.target.BinaryName); err != nil {
		return nil, fmt.Errorf("target %q: %w", b.target.Name, err)
	}

	if err := b.validateArchive(archivePath); err != nil {
		return nil, err
	}

	info, err := b.store.Upload(ctx, b.target.ArchiveName, archivePath)
	if err != nil {
		return nil, fmt.Errorf("target %q: failed to upload artifact: %w", b.target.Name, err)
	}

	result := &Result{
		Target:   b.target,
		Digest:   info.Digest,
		Size:     info.Size,
		Duration: time.Since(start),
	}

	logger.Info("build complete",
		slog.String("artifact", b.target.ArchiveName),
		slog.Int64("size", info.Size),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// validateArchive checks the single-entry invariant before upload.
func (b *Builder) validateArchive(archivePath string) error {
	names, err := archive.EntryNames(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveInvalid, err)
	}

	if !slices.Equal(names, []string{b.target.BinaryName}) {
		return fmt.Errorf("%w: %q has entries %v, want exactly [%s]",
			ErrArchiveInvalid, b.target.ArchiveName, names, b.target.BinaryName)
	}

	return nil
}

// moveFile renames src to dst, falling back to a copy when the rename
// crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open binary: %w", err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			slog.Error("failed to close file", slog.Any("err", closeErr))
		}
	}()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o700)
	if err != nil {
		return fmt.Errorf("failed to create binary: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()

		return fmt.Errorf("failed to copy binary: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close binary: %w", err)
	}

	return os.Remove(src)
}
