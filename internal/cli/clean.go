package cli

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the state file and the changelog artifact",
	Long: `Remove the state file and the changelog artifact.

Clean is the inverse of the pipeline's local outputs: it deletes the
configured state file and changelog so the next run starts fresh. Files
that do not exist are ignored.`,
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	const op = "cli.Clean"

	targets := []string{}
	if cfg.StateFile != "" {
		targets = append(targets, cfg.StateFile)
	}
	if cfg.Changelog.Path != "" {
		path := cfg.Changelog.Path
		if cfg.Directory != "" && !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Directory, path)
		}
		targets = append(targets, path)
	}

	for _, target := range targets {
		err := os.Remove(target)
		switch {
		case err == nil:
			log.Info("removed", "path", target)
		case os.IsNotExist(err):
			log.Debug("nothing to remove", "path", target)
		default:
			return nyxerrors.IOWrap(err, op, "unable to remove "+target)
		}
	}

	printSuccess("clean")
	return nil
}
