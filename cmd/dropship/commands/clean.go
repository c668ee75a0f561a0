package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const cleanDesc = `This command deletes all transient artifacts.

Stored platform archives are normally deleted by the publish stage
once they are attached to a release; clean removes leftovers from
failed or abandoned runs.
`

// NewCleanCmd returns the clean command.
func NewCleanCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:          "clean",
		Short:        "Delete all transient artifacts",
		Long:         cleanDesc,
		SilenceUsage: true,
		RunE: func(cc *cobra.Command, _ []string) error {
			cfg, err := loadConfig(args)
			if err != nil {
				return err
			}

			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cc.Context(), args.GetTimeout())
			defer cancel()

			infos, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("clean failed: %w", err)
			}

			for _, info := range infos {
				if err := store.Delete(ctx, info.Name); err != nil {
					return fmt.Errorf("clean failed: %w", err)
				}
			}

			if !args.GetQuiet() {
				cc.Printf("deleted %d artifacts\n", len(infos))
			}

			return nil
		},
	}
}
