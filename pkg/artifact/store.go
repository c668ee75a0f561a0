// Package artifact implements the transient artifact store used to
// hand archives from the builders to the publisher. Blobs are
// zstd-framed with blake3 content digests recorded in a per-artifact
// JSON manifest. The store never deletes anything implicitly; cleanup
// is an explicit caller decision.
package artifact

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

const (
	blobSuffix = ".zst"
	metaSuffix = ".json"
)

var (
	ErrNotFound       = errors.New("artifact not found")
	ErrBadName        = errors.New("invalid artifact name")
	ErrDigestMismatch = errors.New("artifact digest mismatch")
)

// Info describes one stored artifact.
type Info struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	// Digest is the blake3 digest of the uncompressed content, hex
	// encoded.
	Digest string `json:"digest"`
	// Size is the uncompressed content size in bytes.
	Size int64 `json:"size"`
}

// Store is a directory-backed artifact store.
type Store struct {
	logger *slog.Logger
	root   string
}

// NewStore opens (creating if needed) a store rooted at dir.
func NewStore(dir string) (*Store, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}

	if err := os.MkdirAll(absDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}

	return &Store{
		logger: slog.Default().With(slog.String("store", absDir)),
		root:   absDir,
	}, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}

	return nil
}

// Upload compresses the file at srcPath into the store under name.
// Re-uploading an existing name replaces it atomically.
func (s *Store) Upload(ctx context.Context, name, srcPath string) (*Info, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("upload %q: %w", name, err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer s.closeQuiet(src, srcPath)

	tmpPath := filepath.Join(s.root, fmt.Sprintf(".upload-%s-%s", name, uuid.NewString()))

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob: %w", err)
	}

	info, err := s.writeBlob(tmp, src, name)
	if err != nil {
		s.closeQuiet(tmp, tmpPath)
		s.removeQuiet(tmpPath)

		return nil, err
	}

	if err := tmp.Sync(); err != nil {
		s.closeQuiet(tmp, tmpPath)
		s.removeQuiet(tmpPath)

		return nil, fmt.Errorf("failed to sync blob: %w", err)
	}

	if err := tmp.Close(); err != nil {
		s.removeQuiet(tmpPath)

		return nil, fmt.Errorf("failed to close blob: %w", err)
	}

	if err := os.Rename(tmpPath, s.blobPath(name)); err != nil {
		s.removeQuiet(tmpPath)

		return nil, fmt.Errorf("failed to store blob: %w", err)
	}

	if err := s.writeMeta(info); err != nil {
		return nil, err
	}

	s.logger.Debug("uploaded artifact",
		slog.String("name", name),
		slog.Int64("size", info.Size),
		slog.String("digest", info.Digest),
	)

	return info, nil
}

func (s *Store) writeBlob(dst io.Writer, src io.Reader, name string) (*Info, error) {
	zw, err := zstd.NewWriter(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}

	hasher := blake3.New()

	size, err := io.Copy(zw, io.TeeReader(src, hasher))
	if err != nil {
		return nil, fmt.Errorf("failed to compress artifact: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize compression: %w", err)
	}

	return &Info{
		Name:      name,
		Size:      size,
		Digest:    hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Download decompresses the named artifact to dstPath, verifying the
// recorded content digest. Corruption is an explicit error and leaves
// no file at dstPath.
func (s *Store) Download(ctx context.Context, name, dstPath string) (*Info, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("download %q: %w", name, err)
	}

	info, err := s.readMeta(name)
	if err != nil {
		return nil, err
	}

	blob, err := os.Open(s.blobPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}

		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	defer s.closeQuiet(blob, name)

	zr, err := zstd.NewReader(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}

	hasher := blake3.New()

	if _, err := io.Copy(dst, io.TeeReader(zr, hasher)); err != nil {
		s.closeQuiet(dst, dstPath)
		s.removeQuiet(dstPath)

		return nil, fmt.Errorf("failed to decompress artifact: %w", err)
	}

	if err := dst.Close(); err != nil {
		s.removeQuiet(dstPath)

		return nil, fmt.Errorf("failed to close destination: %w", err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	if digest != info.Digest {
		s.removeQuiet(dstPath)

		return nil, fmt.Errorf("%w: %q: recorded %s, got %s", ErrDigestMismatch, name, info.Digest, digest)
	}

	return info, nil
}

// Delete removes the named artifact and its metadata.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}

	if err := os.Remove(s.blobPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}

		return fmt.Errorf("failed to delete blob: %w", err)
	}

	if err := os.Remove(s.metaPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}

	s.logger.Debug("deleted artifact", slog.String("name", name))

	return nil
}

// List returns metadata for all stored artifacts, sorted by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read store root: %w", err)
	}

	infos := []Info{}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaSuffix) {
			continue
		}

		info, err := s.readMeta(strings.TrimSuffix(entry.Name(), metaSuffix))
		if err != nil {
			return nil, err
		}

		infos = append(infos, *info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos, nil
}

func (s *Store) blobPath(name string) string {
	return filepath.Join(s.root, name+blobSuffix)
}

func (s *Store) metaPath(name string) string {
	return filepath.Join(s.root, name+metaSuffix)
}

func (s *Store) writeMeta(info *Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := os.WriteFile(s.metaPath(info.Name), data, 0o600); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

func (s *Store) readMeta(name string) (*Info, error) {
	data, err := os.ReadFile(s.metaPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}

		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	info := &Info{}
	if err := json.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %q: %w", name, err)
	}

	return info, nil
}

func (s *Store) closeQuiet(c io.Closer, name string) {
	if err := c.Close(); err != nil {
		s.logger.Error("failed to close",
			slog.String("name", name),
			slog.Any("err", err),
		)
	}
}

func (s *Store) removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("failed to remove",
			slog.String("path", path),
			slog.Any("err", err),
		)
	}
}
