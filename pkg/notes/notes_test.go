package notes_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drops-platform/dropship/pkg/notes"
)

// sha256 of "hello".
const helloSHA = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestChecksumFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "linux.zip")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	entry, err := notes.ChecksumFile(path)
	require.NoError(t, err)

	assert.Equal(t, "linux.zip", entry.Name)
	assert.Equal(t, "linux", entry.Platform())
	assert.Equal(t, int64(5), entry.Size)
	assert.Equal(t, helloSHA, entry.SHA256)
}

func TestChecksumFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := notes.ChecksumFile(filepath.Join(t.TempDir(), "nope.zip"))
	require.Error(t, err)
}

func TestChecksumsText(t *testing.T) {
	t.Parallel()

	text := notes.ChecksumsText([]notes.Entry{
		{Name: "linux.zip", SHA256: "aaaa"},
		{Name: "mac.zip", SHA256: "bbbb"},
	})

	assert.Equal(t, "aaaa  linux.zip\nbbbb  mac.zip\n", text)
}

func TestRender(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	body, err := notes.Render("drops-client", "v1.2.3", date, []notes.Entry{
		{Name: "linux.zip", SHA256: "aaaa", Size: 10},
		{Name: "windows.zip", SHA256: "bbbb", Size: 20},
		{Name: "mac.zip", SHA256: "cccc", Size: 30},
	})
	require.NoError(t, err)

	assert.Contains(t, body, "## drops-client v1.2.3")
	assert.Contains(t, body, "Released 2026-03-14.")
	assert.Contains(t, body, "| linux | linux.zip | 10 | aaaa |")
	assert.Contains(t, body, "| windows | windows.zip | 20 | bbbb |")
	assert.Contains(t, body, "| mac | mac.zip | 30 | cccc |")
}
