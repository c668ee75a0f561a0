// Package manifest extracts the release version from the project
// manifest. The manifest is matched line-wise against the pattern
// `version = "<value>"` rather than parsed as TOML, preserving the
// extraction contract of the original release workflow.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

var (
	ErrReadManifest  = errors.New("failed to read manifest")
	ErrNoVersionLine = errors.New("no version line in manifest")
	ErrBadVersion    = errors.New("malformed version")

	versionLineRe = regexp.MustCompile(`(?m)^version\s*=\s*"([^"]+)"`)
	semverRe      = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?$`)
)

// Manifest is the parsed view of a project manifest.
type Manifest struct {
	// Path the manifest was loaded from.
	Path string
	// Version extracted from the version line.
	Version string
}

// Load reads the manifest file at path and extracts its version.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadManifest, err)
	}

	version, err := Extract(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Manifest{Path: path, Version: version}, nil
}

// Extract pattern-matches the first `version = "<value>"` line in data
// and returns the validated value.
func Extract(data []byte) (string, error) {
	m := versionLineRe.FindSubmatch(data)
	if m == nil {
		return "", ErrNoVersionLine
	}

	version := string(m[1])
	if err := Validate(version); err != nil {
		return "", err
	}

	return version, nil
}

// Validate checks that version is a semver-shaped X.Y.Z value with an
// optional pre-release suffix.
func Validate(version string) error {
	if !semverRe.MatchString(version) {
		return fmt.Errorf("%w: %q", ErrBadVersion, version)
	}

	return nil
}

// Tag returns the release tag for the manifest version.
func (m *Manifest) Tag() string {
	return "v" + m.Version
}
