package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drops-platform/dropship/pkg/config"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Cargo.toml", cfg.Manifest)
	assert.Equal(t, "drops-client", cfg.Binary)
	require.Len(t, cfg.Targets, 3)
	assert.Equal(t, "linux", cfg.Targets[0].Name)
	assert.Equal(t, "windows", cfg.Targets[1].Name)
	assert.Equal(t, "mac", cfg.Targets[2].Name)
	assert.Equal(t, "target/release/drops-client.exe", cfg.Targets[1].BinaryPath)
}

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		check   func(t *testing.T, cfg *config.Config)
		wantErr error
	}{
		"empty uses defaults": {
			input: "",
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.Default(), cfg)
			},
		},
		"overrides manifest": {
			input: "manifest: client/Cargo.toml\n",
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "client/Cargo.toml", cfg.Manifest)
				assert.Equal(t, "drops-client", cfg.Binary)
			},
		},
		"replaces targets": {
			input: `targets:
  - name: linux
    command: ["make", "release"]
    binary_path: out/drops-client
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				require.Len(t, cfg.Targets, 1)
				assert.Equal(t, []string{"make", "release"}, cfg.Targets[0].Command)
			},
		},
		"unknown field": {
			input:   "manifests: Cargo.toml\n",
			wantErr: config.ErrDecodeConfig,
		},
		"duplicate target": {
			input: `targets:
  - name: linux
    command: ["make"]
    binary_path: out/a
  - name: linux
    command: ["make"]
    binary_path: out/b
`,
			wantErr: config.ErrInvalidConfig,
		},
		"missing command": {
			input: `targets:
  - name: linux
    binary_path: out/a
`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Unmarshal([]byte(tc.input))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dropship.yaml")
	require.NoError(t, os.WriteFile(path, []byte("binary: drops-client\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "drops-client", cfg.Binary)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, config.ErrReadConfig)
}

func TestToken(t *testing.T) {
	t.Setenv(config.TokenEnvVar, "hunter2")

	assert.Equal(t, "hunter2", config.Token())
}
