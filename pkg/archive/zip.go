// Package archive packages build outputs as zip archives and validates
// archives on the way back in. Extraction applies the same inbound-path
// and size guards the rest of the pipeline relies on.
package archive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	ErrFailedFileRead  = errors.New("failed to read file")
	ErrFailedFileWrite = errors.New("failed to write file")
	ErrIllegalPath     = errors.New("illegal filepath in archive")
)

// SizeLimitError reports an extraction that hit the configured limit.
type SizeLimitError struct {
	MaxSize int64
}

func (e SizeLimitError) Error() string {
	return fmt.Sprintf(
		"extracted content was likely greater than your defined limit of %d bytes", e.MaxSize,
	)
}

// WriteFileZip compresses the file at src into a new zip archive at dst
// holding a single deflate entry named entryName.
func WriteFileZip(dst, src, entryName string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedFileRead, err)
	}
	defer closeWithLog(srcFile, src)

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedFileWrite, err)
	}

	zw := zip.NewWriter(dstFile)

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:   entryName,
		Method: zip.Deflate,
	})
	if err != nil {
		closeWithLog(dstFile, dst)

		return fmt.Errorf("failed to create archive entry %q: %w", entryName, err)
	}

	if _, err := io.Copy(entry, srcFile); err != nil {
		closeWithLog(dstFile, dst)

		return fmt.Errorf("%w: %w", ErrFailedFileWrite, err)
	}

	if err := zw.Close(); err != nil {
		closeWithLog(dstFile, dst)

		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedFileWrite, err)
	}

	return nil
}

// EntryNames lists the entry names of the zip archive at path.
func EntryNames(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedFileRead, err)
	}
	defer closeWithLog(zr, path)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	return names, nil
}

// Extract unpacks the zip archive at src into dstPath. Callers must
// make sure dstPath is a full path pointing to an empty or non-existing
// directory. Entries resolving outside dstPath are rejected, and
// maxSize (when non-zero) bounds the total uncompressed size.
func Extract(dstPath, src string, maxSize int64) error {
	if !filepath.IsAbs(dstPath) {
		return fmt.Errorf("dstPath points to a relative path: %s", dstPath)
	}

	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedFileRead, err)
	}
	defer closeWithLog(zr, src)

	if err := os.MkdirAll(dstPath, 0o750); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedFileWrite, err)
	}

	remaining := maxSize

	for _, f := range zr.File {
		//nolint:gosec // G305 checked by [inbound].
		target := filepath.Join(dstPath, f.Name)
		// Sanity check to protect against zip-slip.
		if !inbound(target, dstPath) {
			return fmt.Errorf("%w: %s", ErrIllegalPath, target)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return fmt.Errorf("error creating nested folders: %w", err)
			}

			continue
		}

		n, err := extractEntry(target, f, remaining, maxSize)
		if err != nil {
			return err
		}

		if maxSize != 0 {
			remaining -= n
		}
	}

	return nil
}

func extractEntry(target string, f *zip.File, remaining, maxSize int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return 0, fmt.Errorf("error creating nested folders: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFailedFileRead, err)
	}
	defer closeWithLog(rc, f.Name)

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFailedFileWrite, err)
	}

	var r io.Reader = rc
	if maxSize != 0 {
		r = io.LimitReader(rc, remaining+1)
	}

	n, err := io.Copy(dst, r)
	if err != nil {
		closeWithLog(dst, target)

		return n, fmt.Errorf("%w: %w", ErrFailedFileWrite, err)
	}

	if err := dst.Close(); err != nil {
		return n, fmt.Errorf("%w: %w", ErrFailedFileWrite, err)
	}

	if maxSize != 0 && n > remaining {
		return n, SizeLimitError{MaxSize: maxSize}
	}

	return n, nil
}

// inbound reports whether candidate is inside baseDir.
func inbound(candidate, baseDir string) bool {
	candidate = filepath.Clean(candidate)

	return strings.HasPrefix(candidate, filepath.Clean(baseDir)+string(os.PathSeparator))
}

func closeWithLog(c io.Closer, name string) {
	if err := c.Close(); err != nil {
		slog.Error("failed to close",
			slog.String("name", name),
			slog.Any("err", err),
		)
	}
}
