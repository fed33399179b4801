package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/nyx/internal/git"
	"github.com/relicta-tech/nyx/internal/pipeline"
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Resolve the release scope and compute the next version",
	Long: `Resolve the release scope and compute the next version.

Infer is read-only: it selects the active release type for the current
branch, walks the history back to the previous release, classifies the
commits in between, and derives the next version. The outcome is printed
as a flat summary and checkpointed to the state file when one is
configured.`,
	RunE: runPhases(1),
}

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Commit, tag and push the release anchors",
	Long: `Commit, tag and push the release anchors.

Mark runs Infer first, then performs the Git side effects the active
release type enables: committing release artifacts, tagging the release
commit, and pushing to the configured remotes.`,
	RunE: runPhases(2),
}

var makeCmd = &cobra.Command{
	Use:   "make",
	Short: "Build the changelog artifact",
	Long: `Build the changelog artifact.

Make runs the earlier phases first, then renders the changelog to the
configured path. The write is skipped when the file content would be
identical.`,
	RunE: runPhases(3),
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Create hosted releases on the configured services",
	Long: `Create hosted releases on the configured services.

Publish runs the full pipeline, then creates a release on every
configured publication service, in declaration order. A failing service
is reported and the remaining services still run; the command fails when
any of them failed.`,
	RunE: runPhases(4),
}

// runPhases builds a command handler running the pipeline up to the given
// phase count: Infer, Mark, Make, Publish.
func runPhases(count int) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		repo, err := git.Open(repositoryDirectory())
		if err != nil {
			return err
		}

		p, err := pipeline.New(cfg, repo)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		phases := []func(context.Context) error{p.Infer, p.Mark, p.Make, p.Publish}
		for i := 0; i < count && i < len(phases); i++ {
			if err := phases[i](ctx); err != nil {
				return err
			}
		}

		printTitle("release " + p.State().Version)
		printSubtle(p.Summary())
		if p.State().NewRelease && count == len(phases) {
			printSuccess("published " + p.State().Version)
		}
		return nil
	}
}

func repositoryDirectory() string {
	if cfg.Directory != "" {
		return cfg.Directory
	}
	return "."
}
