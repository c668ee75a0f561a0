package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drops-platform/dropship/pkg/build"
	"github.com/drops-platform/dropship/pkg/gate"
	"github.com/drops-platform/dropship/pkg/publish"
)

const publishDesc = `This command publishes archives from the artifact store.

The version gate runs first; when the manifest version is already
released the command prints the existing release and succeeds without
publishing. Otherwise a release is created with every stored platform
archive, a checksum file, and generated release notes, and the stored
archives are deleted.
`

// NewPublishCmd returns the publish command.
func NewPublishCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:          "publish",
		Short:        "Publish stored archives as a release",
		Long:         publishDesc,
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

			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cc.Context(), args.GetTimeout())
			defer cancel()

			decision, err := gate.New(cfg.Manifest, client).Check(ctx)
			if err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}

			if decision.AlreadyReleased {
				if !args.GetQuiet() {
					cc.Printf("%s is already released: %s\n", decision.Tag, decision.ExistingURL)
				}

				return nil
			}

			p := publish.New(cfg.Manifest, cfg.Binary, build.Targets(cfg), store, client,
				publish.WithExpectedVersion(decision.Version))

			rel, err := p.Run(ctx)
			if err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}

			if !args.GetQuiet() {
				cc.Printf("published %s: %s\n", rel.TagName, rel.HTMLURL)
			}

			return nil
		},
	}
}
