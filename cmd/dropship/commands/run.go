package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/drops-platform/dropship/pkg/artifact"
	"github.com/drops-platform/dropship/pkg/build"
	"github.com/drops-platform/dropship/pkg/config"
	"github.com/drops-platform/dropship/pkg/execx"
	"github.com/drops-platform/dropship/pkg/gate"
	"github.com/drops-platform/dropship/pkg/log"
	"github.com/drops-platform/dropship/pkg/pipeline"
	"github.com/drops-platform/dropship/pkg/publish"
	"github.com/drops-platform/dropship/pkg/release"
	"github.com/drops-platform/dropship/pkg/releasetui"
)

var ErrPipelineFailed = errors.New("pipeline failed")

const runDesc = `This command runs the full release pipeline.

The version gate reads the Cargo manifest and checks whether its
version is already released; if it is, every downstream stage is
skipped and the run succeeds. Otherwise each configured platform is
built and packaged in parallel, and the publish stage creates the
release with all archives, a checksum file, and release notes.
`

// NewRunCmd returns the run command.
func NewRunCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:          "run",
		Short:        "Run the full release pipeline",
		Long:         runDesc,
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

			runner, err := newReleasePipeline(cfg, client, store, newCommandRunner())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cc.Context(), args.GetTimeout())
			defer cancel()

			if args.GetQuiet() || !isatty.IsTerminal(os.Stdout.Fd()) {
				if _, err := runner.Run(ctx); err != nil {
					return fmt.Errorf("%w: %w", ErrPipelineFailed, err)
				}

				return nil
			}

			lvl, err := log.ParseLevel(args.GetLogLevel())
			if err != nil {
				return fmt.Errorf("%w: %w", ErrLogHandlerFailed, err)
			}

			tui := releasetui.NewPipelineTUI(cc.OutOrStdout(), lvl, runner)
			if _, err := tui.Run(ctx); err != nil {
				return fmt.Errorf("%w: %w", ErrPipelineFailed, err)
			}

			return nil
		},
	}
}

// newReleasePipeline wires the gate, one build stage per target, and
// the publish stage into a runner. The publish stage sees the version
// the gate read, so a manifest edit mid-run fails the pipeline instead
// of releasing under a different tag.
func newReleasePipeline(
	cfg *config.Config, client *release.Client, store *artifact.Store, cmdRunner execx.Runner,
) (*pipeline.Runner, error) {
	targets := build.Targets(cfg)
	runner := pipeline.NewRunner(len(targets) + 1)

	var gateVersion string

	g := gate.New(cfg.Manifest, client)

	err := runner.Add(&pipeline.Stage{
		ID: "gate",
		Run: func(ctx context.Context) error {
			decision, err := g.Check(ctx)
			if err != nil {
				return err
			}

			gateVersion = decision.Version

			if decision.AlreadyReleased {
				slog.Info("version already released, skipping",
					slog.String("tag", decision.Tag),
					slog.String("url", decision.ExistingURL),
				)

				return pipeline.ErrSkipDownstream
			}

			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble pipeline: %w", err)
	}

	buildIDs := make([]string, 0, len(targets))

	for _, target := range targets {
		b := build.New(target, cmdRunner, store, ".")
		id := "build-" + target.Name
		buildIDs = append(buildIDs, id)

		err := runner.Add(&pipeline.Stage{
			ID:    id,
			Needs: []string{"gate"},
			Run: func(ctx context.Context) error {
				_, err := b.Run(ctx)

				return err
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to assemble pipeline: %w", err)
		}
	}

	err = runner.Add(&pipeline.Stage{
		ID:    "publish",
		Needs: buildIDs,
		Run: func(ctx context.Context) error {
			p := publish.New(cfg.Manifest, cfg.Binary, targets, store, client,
				publish.WithExpectedVersion(gateVersion))

			_, err := p.Run(ctx)

			return err
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble pipeline: %w", err)
	}

	return runner, nil
}
