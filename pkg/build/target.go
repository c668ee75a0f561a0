package build

import "github.com/drops-platform/dropship/pkg/config"

// Target describes one platform build: what to run, where the compiler
// leaves the binary, and how the packaged archive is named.
type Target struct {
	// Name is the platform name (linux, windows, mac).
	Name string
	// BinaryName is the canonical binary name inside the archive,
	// ".exe"-suffixed on windows.
	BinaryName string
	// BinaryPath is where the build command leaves the binary,
	// relative to the working directory.
	BinaryPath string
	// ArchiveName is the produced archive name (<name>.zip), which is
	// also the transient artifact name.
	ArchiveName string
	// Command is the toolchain invocation.
	Command []string
	// Env holds extra KEY=VALUE pairs for Command.
	Env []string
}

// TargetFromConfig derives a Target from its configuration, using
// binary as the canonical binary name.
func TargetFromConfig(tc config.Target, binary string) Target {
	binaryName := binary
	if tc.Name == "windows" {
		binaryName += ".exe"
	}

	return Target{
		Name:        tc.Name,
		BinaryName:  binaryName,
		BinaryPath:  tc.BinaryPath,
		ArchiveName: tc.Name + ".zip",
		Command:     tc.Command,
		Env:         tc.Env,
	}
}

// Targets derives all build targets from the configuration.
func Targets(cfg *config.Config) []Target {
	targets := make([]Target, 0, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		targets = append(targets, TargetFromConfig(tc, cfg.Binary))
	}

	return targets
}
