package commands_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drops-platform/dropship/cmd/dropship/commands"
	"github.com/drops-platform/dropship/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	tc := commands.NewRootCmd("test_publish", "", "")
	stdout := &bytes.Buffer{}

	tc.SetArgs(args)
	tc.SetOut(stdout)
	tc.SetErr(&bytes.Buffer{})

	err := tc.Execute()

	return stdout.String(), err
}

func TestPublishCmd(t *testing.T) {
	api := newFakeAPI(t, false)
	writeWorkspace(t, api.srv.URL)
	t.Setenv(config.TokenEnvVar, "test-token")

	_, err := execute(t, "build", "--log_level", "error")
	require.NoError(t, err)

	out, err := execute(t, "publish", "--log_level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "published v0.1.0: https://example.com/releases/v0.1.0")

	assert.Equal(t, 1, api.createCount())
	assert.ElementsMatch(t,
		[]string{"linux.zip", "windows.zip", "mac.zip", "checksums.txt"},
		api.assetNames(),
	)
}

func TestPublishCmd_AlreadyReleased(t *testing.T) {
	api := newFakeAPI(t, true)
	writeWorkspace(t, api.srv.URL)
	t.Setenv(config.TokenEnvVar, "test-token")

	out, err := execute(t, "publish")
	require.NoError(t, err)
	assert.Contains(t, out, "v0.1.0 is already released")
	assert.Zero(t, api.createCount())
}
