// Package config loads the dropship pipeline configuration from a YAML
// file. Decoding is strict: unknown fields are an error, so typos in
// dropship.yaml fail fast instead of silently using defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// TokenEnvVar is the environment variable holding the release API
// token. Secrets stay in the environment, never in dropship.yaml.
const TokenEnvVar = "DROPS_GITHUB_TOKEN"

var (
	ErrReadConfig    = errors.New("failed to read config")
	ErrDecodeConfig  = errors.New("failed to decode config")
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the root pipeline configuration.
type Config struct {
	// Manifest is the path of the version manifest, relative to the
	// working directory.
	Manifest string `yaml:"manifest"`
	// Binary is the canonical binary name built and released.
	Binary     string     `yaml:"binary"`
	Repository Repository `yaml:"repository"`
	Artifacts  Artifacts  `yaml:"artifacts"`
	Targets    []Target   `yaml:"targets"`
}

// Repository identifies the release repository and API endpoints.
type Repository struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	// APIURL overrides the release API base URL. Used by tests.
	APIURL string `yaml:"api_url,omitempty"`
	// UploadURL overrides the asset upload base URL.
	UploadURL string `yaml:"upload_url,omitempty"`
}

// Artifacts configures the transient artifact store.
type Artifacts struct {
	Dir string `yaml:"dir"`
}

// Target configures one platform build.
type Target struct {
	// Name is the platform name, also naming the produced archive
	// (<name>.zip).
	Name string `yaml:"name"`
	// BinaryPath is where the build command leaves the binary,
	// relative to the working directory.
	BinaryPath string `yaml:"binary_path"`
	// Command is the toolchain invocation that compiles the binary in
	// release mode.
	Command []string `yaml:"command"`
	// Env holds extra KEY=VALUE pairs for the command.
	Env []string `yaml:"env,omitempty"`
}

// Default returns the configuration for the stock drops-client layout.
func Default() *Config {
	const binaryPath = "target/release/drops-client"

	cargoBuild := []string{"cargo", "build", "--release"}

	return &Config{
		Manifest: "Cargo.toml",
		Binary:   "drops-client",
		Repository: Repository{
			Owner: "drops-platform",
			Repo:  "drops-client",
		},
		Artifacts: Artifacts{
			Dir: ".dropship/artifacts",
		},
		Targets: []Target{
			{Name: "linux", Command: cargoBuild, BinaryPath: binaryPath},
			{Name: "windows", Command: cargoBuild, BinaryPath: binaryPath + ".exe"},
			{Name: "mac", Command: cargoBuild, BinaryPath: binaryPath},
		},
	}
}

// Load reads and validates the configuration at path. Values present in
// the file override defaults; a provided targets list replaces the
// default targets entirely.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	cfg, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Unmarshal strictly decodes data over the default configuration and
// validates the result.
func Unmarshal(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrDecodeConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.Manifest == "" {
		return fmt.Errorf("%w: manifest is required", ErrInvalidConfig)
	}

	if c.Binary == "" {
		return fmt.Errorf("%w: binary is required", ErrInvalidConfig)
	}

	if c.Repository.Owner == "" || c.Repository.Repo == "" {
		return fmt.Errorf("%w: repository owner and repo are required", ErrInvalidConfig)
	}

	if c.Artifacts.Dir == "" {
		return fmt.Errorf("%w: artifacts dir is required", ErrInvalidConfig)
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: at least one target is required", ErrInvalidConfig)
	}

	seen := map[string]bool{}

	for _, target := range c.Targets {
		if target.Name == "" {
			return fmt.Errorf("%w: target name is required", ErrInvalidConfig)
		}

		if seen[target.Name] {
			return fmt.Errorf("%w: duplicate target %q", ErrInvalidConfig, target.Name)
		}

		seen[target.Name] = true

		if len(target.Command) == 0 {
			return fmt.Errorf("%w: target %q has no build command", ErrInvalidConfig, target.Name)
		}

		if target.BinaryPath == "" {
			return fmt.Errorf("%w: target %q has no binary path", ErrInvalidConfig, target.Name)
		}
	}

	return nil
}

// Token returns the release API token from the environment.
func Token() string {
	return os.Getenv(TokenEnvVar)
}
