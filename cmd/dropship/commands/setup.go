package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/drops-platform/dropship/pkg/artifact"
	"github.com/drops-platform/dropship/pkg/config"
	"github.com/drops-platform/dropship/pkg/execx"
	"github.com/drops-platform/dropship/pkg/release"
)

// loadConfig reads the configuration named by --config, falling back
// to the built-in drops-client defaults when the file does not exist.
func loadConfig(args *RootArgs) (*config.Config, error) {
	path := args.GetConfigPath()

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func newReleaseClient(cfg *config.Config) (*release.Client, error) {
	client, err := release.NewClient(release.Config{
		BaseURL:   cfg.Repository.APIURL,
		UploadURL: cfg.Repository.UploadURL,
		Owner:     cfg.Repository.Owner,
		Repo:      cfg.Repository.Repo,
		Token:     config.Token(),
	})
	if err != nil {
		if errors.Is(err, release.ErrNoToken) {
			return nil, fmt.Errorf("%w (set %s)", err, config.TokenEnvVar)
		}

		return nil, fmt.Errorf("failed to create release client: %w", err)
	}

	return client, nil
}

func newStore(cfg *config.Config) (*artifact.Store, error) {
	store, err := artifact.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	return store, nil
}

// newCommandRunner returns a runner for toolchain invocations. The API
// token is masked in command logs.
func newCommandRunner() execx.Runner {
	return execx.NewLocalRunner(execx.CmdOpts{
		Redactor: execx.Redact([]string{config.Token()}),
	})
}
