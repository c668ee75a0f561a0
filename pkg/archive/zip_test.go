package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drops-platform/dropship/pkg/archive"
)

func TestWriteFileZip(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	src := filepath.Join(tmpDir, "drops-client")
	require.NoError(t, os.WriteFile(src, []byte("binary contents"), 0o700))

	dst := filepath.Join(tmpDir, "linux.zip")
	require.NoError(t, archive.WriteFileZip(dst, src, "drops-client"))

	names, err := archive.EntryNames(dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"drops-client"}, names)

	out := filepath.Join(tmpDir, "out")
	require.NoError(t, archive.Extract(out, dst, 0))

	data, err := os.ReadFile(filepath.Join(out, "drops-client"))
	require.NoError(t, err)
	assert.Equal(t, "binary contents", string(data))
}

func TestWriteFileZip_MissingSource(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	err := archive.WriteFileZip(
		filepath.Join(tmpDir, "out.zip"),
		filepath.Join(tmpDir, "nope"),
		"drops-client",
	)
	require.ErrorIs(t, err, archive.ErrFailedFileRead)
}

func TestExtract_SizeLimit(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	src := filepath.Join(tmpDir, "big")
	require.NoError(t, os.WriteFile(src, make([]byte, 4096), 0o600))

	zipPath := filepath.Join(tmpDir, "big.zip")
	require.NoError(t, archive.WriteFileZip(zipPath, src, "big"))

	err := archive.Extract(filepath.Join(tmpDir, "out"), zipPath, 128)
	require.Error(t, err)

	limitErr := archive.SizeLimitError{}
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(128), limitErr.MaxSize)
}

func TestExtract_ZipSlip(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	zipPath := filepath.Join(tmpDir, "evil.zip")

	f, err := os.Create(zipPath)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	entry, err := zw.Create("../escape")
	require.NoError(t, err)

	_, err = entry.Write([]byte("pwned"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	err = archive.Extract(filepath.Join(tmpDir, "out"), zipPath, 0)
	require.ErrorIs(t, err, archive.ErrIllegalPath)
}

func TestExtract_RelativeDst(t *testing.T) {
	t.Parallel()

	err := archive.Extract("relative/path", "whatever.zip", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relative path")
}
