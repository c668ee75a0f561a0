package commands_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drops-platform/dropship/cmd/dropship/commands"
	"github.com/drops-platform/dropship/pkg/config"
)

func TestCheckCmd(t *testing.T) {
	tcs := map[string]struct {
		want     string
		args     []string
		released bool
	}{
		"not released": {
			released: false,
			args:     []string{"check"},
			want:     "v0.1.0 is not released yet\n",
		},
		"already released": {
			released: true,
			args:     []string{"check"},
			want:     "v0.1.0 is already released: https://example.com/releases/v0.1.0\n",
		},
		"quiet": {
			released: true,
			args:     []string{"check", "--quiet"},
			want:     "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			api := newFakeAPI(t, tc.released)
			writeWorkspace(t, api.srv.URL)
			t.Setenv(config.TokenEnvVar, "test-token")

			rootCmd := commands.NewRootCmd("test_check", "", "")
			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}

			rootCmd.SetArgs(tc.args)
			rootCmd.SetOut(stdout)
			rootCmd.SetErr(stderr)

			err := rootCmd.Execute()
			require.NoError(t, err)
			assert.Equal(t, tc.want, stdout.String())
		})
	}
}
