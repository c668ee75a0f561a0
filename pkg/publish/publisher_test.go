package publish_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drops-platform/dropship/pkg/archive"
	"github.com/drops-platform/dropship/pkg/artifact"
	"github.com/drops-platform/dropship/pkg/build"
	"github.com/drops-platform/dropship/pkg/config"
	"github.com/drops-platform/dropship/pkg/publish"
	"github.com/drops-platform/dropship/pkg/release"
)

type uploadedAsset struct {
	name        string
	contentType string
	content     string
}

type fakeReleaseClient struct {
	createErr error
	created   *release.NewRelease
	uploaded  []uploadedAsset
}

func (f *fakeReleaseClient) CreateRelease(
	_ context.Context, newRelease release.NewRelease,
) (*release.Release, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.created = &newRelease

	return &release.Release{
		ID:      99,
		TagName: newRelease.TagName,
		HTMLURL: "https://example.com/releases/" + newRelease.TagName,
	}, nil
}

func (f *fakeReleaseClient) UploadAsset(
	_ context.Context, _ int64, name, contentType string, r io.Reader, _ int64,
) (*release.Asset, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	f.uploaded = append(f.uploaded, uploadedAsset{
		name:        name,
		contentType: contentType,
		content:     string(content),
	})

	return &release.Asset{Name: name}, nil
}

func targets(t *testing.T) []build.Target {
	t.Helper()

	return build.Targets(config.Default())
}

func writeManifest(t *testing.T, version string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "Cargo.toml")
	require.NoError(t, os.WriteFile(path, []byte(`version = "`+version+`"`), 0o600))

	return path
}

// seedStore uploads a valid single-entry archive per target.
func seedStore(t *testing.T, store *artifact.Store, targets []build.Target) {
	t.Helper()

	tmpDir := t.TempDir()

	for _, target := range targets {
		binPath := filepath.Join(tmpDir, target.BinaryName)
		require.NoError(t, os.WriteFile(binPath, []byte("binary for "+target.Name), 0o700))

		zipPath := filepath.Join(tmpDir, target.ArchiveName)
		require.NoError(t, archive.WriteFileZip(zipPath, binPath, target.BinaryName))

		_, err := store.Upload(t.Context(), target.ArchiveName, zipPath)
		require.NoError(t, err)
	}
}

func newStore(t *testing.T) *artifact.Store {
	t.Helper()

	store, err := artifact.NewStore(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)

	return store
}

func TestPublisher_Run(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seedStore(t, store, targets(t))

	client := &fakeReleaseClient{}
	p := publish.New(
		writeManifest(t, "1.2.3"), "drops-client", targets(t), store, client,
		publish.WithExpectedVersion("1.2.3"),
	)

	rel, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", rel.TagName)

	require.NotNil(t, client.created)
	assert.Equal(t, "v1.2.3", client.created.TagName)
	assert.True(t, client.created.GenerateReleaseNotes)
	assert.Contains(t, client.created.Body, "## drops-client v1.2.3")

	// Three archives plus checksums.txt, archives in sorted order.
	require.Len(t, client.uploaded, 4)
	assert.Equal(t, "linux.zip", client.uploaded[0].name)
	assert.Equal(t, "mac.zip", client.uploaded[1].name)
	assert.Equal(t, "windows.zip", client.uploaded[2].name)
	assert.Equal(t, "checksums.txt", client.uploaded[3].name)
	assert.Equal(t, "application/zip", client.uploaded[0].contentType)
	assert.Contains(t, client.uploaded[3].content, "linux.zip")

	// Transient artifacts were cleaned up.
	infos, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestPublisher_MissingArtifact(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	all := targets(t)
	seedStore(t, store, all[:2]) // no mac.zip

	client := &fakeReleaseClient{}
	p := publish.New(writeManifest(t, "1.2.3"), "drops-client", all, store, client)

	_, err := p.Run(t.Context())
	require.ErrorIs(t, err, artifact.ErrNotFound)

	// No release was created and nothing was deleted.
	assert.Nil(t, client.created)

	infos, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestPublisher_WrongArchiveEntry(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	tmpDir := t.TempDir()
	badBin := filepath.Join(tmpDir, "wrong-name")
	require.NoError(t, os.WriteFile(badBin, []byte("x"), 0o700))

	all := targets(t)
	seedStore(t, store, all)

	// Replace linux.zip with an archive holding the wrong entry.
	badZip := filepath.Join(tmpDir, "linux.zip")
	require.NoError(t, archive.WriteFileZip(badZip, badBin, "wrong-name"))

	_, err := store.Upload(t.Context(), "linux.zip", badZip)
	require.NoError(t, err)

	client := &fakeReleaseClient{}
	p := publish.New(writeManifest(t, "1.2.3"), "drops-client", all, store, client)

	_, err = p.Run(t.Context())
	require.ErrorIs(t, err, publish.ErrArchiveInvalid)
	assert.Nil(t, client.created)
}

func TestPublisher_VersionChanged(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seedStore(t, store, targets(t))

	p := publish.New(
		writeManifest(t, "1.2.4"), "drops-client", targets(t), store, &fakeReleaseClient{},
		publish.WithExpectedVersion("1.2.3"),
	)

	_, err := p.Run(t.Context())
	require.ErrorIs(t, err, publish.ErrVersionChanged)
}

func TestPublisher_TagConflict(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seedStore(t, store, targets(t))

	conflict := &release.APIError{
		StatusCode: 422,
		Message:    "Validation Failed",
		Errors: []release.ValidationError{
			{Resource: "Release", Field: "tag_name", Code: "already_exists"},
		},
	}

	p := publish.New(
		writeManifest(t, "1.2.3"), "drops-client", targets(t), store,
		&fakeReleaseClient{createErr: conflict},
	)

	_, err := p.Run(t.Context())
	require.Error(t, err)
	assert.True(t, release.IsTagConflict(err))
}
