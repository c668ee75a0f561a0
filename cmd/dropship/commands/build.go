package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/drops-platform/dropship/pkg/build"
)

const buildDesc = `This command builds and packages platform archives.

Each configured target is compiled in release mode and packaged into
its platform archive, which lands in the transient artifact store. No
release is created; use the publish command to release stored
archives.
`

type BuildArgs struct {
	*RootArgs

	target *string
}

func NewBuildArgs(args *RootArgs) *BuildArgs {
	return &BuildArgs{
		RootArgs: args,
		target:   new(string),
	}
}

func (a *BuildArgs) GetTarget() string {
	return *a.target
}

// NewBuildCmd returns the build command.
func NewBuildCmd(arg *RootArgs) *cobra.Command {
	args := NewBuildArgs(arg)

	cmd := &cobra.Command{
		Use:          "build",
		Short:        "Build and package platform archives",
		Long:         buildDesc,
		SilenceUsage: true,
		RunE: func(cc *cobra.Command, _ []string) error {
			cfg, err := loadConfig(args.RootArgs)
			if err != nil {
				return err
			}

			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			targets := build.Targets(cfg)

			if name := args.GetTarget(); name != "" {
				i := slices.IndexFunc(targets, func(t build.Target) bool {
					return t.Name == name
				})
				if i < 0 {
					return fmt.Errorf("%w: unknown target %q", ErrInvalidArgument, name)
				}

				targets = targets[i : i+1]
			}

			ctx, cancel := context.WithTimeout(cc.Context(), args.GetTimeout())
			defer cancel()

			cmdRunner := newCommandRunner()
			results := make([]*build.Result, len(targets))

			g, gCtx := errgroup.WithContext(ctx)

			for i, target := range targets {
				g.Go(func() error {
					result, err := build.New(target, cmdRunner, store, ".").Run(gCtx)
					if err != nil {
						return err
					}

					results[i] = result

					return nil
				})
			}

			if err := g.Wait(); err != nil {
				return fmt.Errorf("build failed: %w", err)
			}

			if args.GetQuiet() {
				return nil
			}

			for _, result := range results {
				cc.Printf("packaged %s (%d bytes)\n", result.Target.ArchiveName, result.Size)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(args.target, "target", "", "Build only the named target")

	return cmd
}
