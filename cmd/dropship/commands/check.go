package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drops-platform/dropship/pkg/gate"
)

const checkDesc = `This command runs only the version gate.

It reads the version from the Cargo manifest and reports whether a
release for it already exists. The command succeeds either way; use
the output to decide whether a run would publish anything.
`

// NewCheckCmd returns the check command.
func NewCheckCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:          "check",
		Short:        "Check whether the manifest version is released",
		Long:         checkDesc,
		SilenceUsage: true,
		RunE: func(cc *cobra.Command, _ []string) error {
			cfg, err := loadConfig(args)
			if err != nil {
				return err
			}

			client, err := newReleaseClient(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cc.Context(), args.GetTimeout())
			defer cancel()

			decision, err := gate.New(cfg.Manifest, client).Check(ctx)
			if err != nil {
				return fmt.Errorf("check failed: %w", err)
			}

			if args.GetQuiet() {
				return nil
			}

			if decision.AlreadyReleased {
				cc.Printf("%s is already released: %s\n", decision.Tag, decision.ExistingURL)
			} else {
				cc.Printf("%s is not released yet\n", decision.Tag)
			}

			return nil
		},
	}
}
