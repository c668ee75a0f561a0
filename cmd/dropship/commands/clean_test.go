package commands_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drops-platform/dropship/cmd/dropship/commands"
	"github.com/drops-platform/dropship/pkg/artifact"
)

func TestCleanCmd(t *testing.T) {
	writeWorkspace(t, "http://127.0.0.1:1")

	err := os.WriteFile("leftover.zip", []byte("zip data"), 0o600)
	require.NoError(t, err)

	store, err := artifact.NewStore("store")
	require.NoError(t, err)

	_, err = store.Upload(t.Context(), "linux.zip", "leftover.zip")
	require.NoError(t, err)

	tc := commands.NewRootCmd("test_clean", "", "")
	stdout := &bytes.Buffer{}

	tc.SetArgs([]string{"clean"})
	tc.SetOut(stdout)
	tc.SetErr(&bytes.Buffer{})

	err = tc.Execute()
	require.NoError(t, err)
	assert.Equal(t, "deleted 1 artifacts\n", stdout.String())

	infos, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, infos)
}
