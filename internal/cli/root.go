// Package cli provides the command-line interface for Nyx.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/relicta-tech/nyx/internal/config"
)

var (
	// Version information set by main.
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}

	// Global flags
	cfgFile      string
	sharedFile   string
	presetFlag   string
	directory    string
	stateFile    string
	summaryFile  string
	bumpFlag     string
	versionFlag  string
	prefixFlag   string
	dryRun       bool
	resumeFlag   bool
	verbose      bool
	noColor      bool
	logLevel     string

	// Effective configuration, resolved by initConfig.
	cfg *config.Config

	// Logger
	logger *log.Logger

	// Styles
	styles = struct {
		Title   lipgloss.Style
		Success lipgloss.Style
		Error   lipgloss.Style
		Subtle  lipgloss.Style
	}{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
)

// SetVersionInfo sets the build information from main.
func SetVersionInfo(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "nyx",
	Short: "Semantic release automation for Git repositories",
	Long: `Nyx derives the next semantic version from your Git history and a
declarative configuration, assembles release artifacts, and publishes
commits, tags and hosted releases.

The release flow is split into phases, each available as a command:

  infer    resolve the release scope and compute the next version (read-only)
  mark     commit, tag and push the release anchors
  make     build the changelog artifact
  publish  create hosted releases on the configured services

Each command runs the pipeline up to and including its phase. With a
state file and --resume, completed phases are skipped on re-runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context for cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	log.SetDefault(logger)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "configuration file (.yaml, .json or .toml)")
	rootCmd.PersistentFlags().StringVar(&sharedFile, "shared-config", "", "shared configuration file layered below the main one")
	rootCmd.PersistentFlags().StringVar(&presetFlag, "preset", "", "compiled-in configuration preset (simple, extended, extendedGitFlow)")
	rootCmd.PersistentFlags().StringVarP(&directory, "directory", "d", "", "repository working directory")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state-file", "", "file the engine state is checkpointed to")
	rootCmd.PersistentFlags().StringVar(&summaryFile, "summary-file", "", "file the run summary is written to")
	rootCmd.PersistentFlags().StringVar(&bumpFlag, "bump", "", "override the bump component (major, minor, patch or an identifier)")
	rootCmd.PersistentFlags().StringVar(&versionFlag, "version-override", "", "release exactly this version instead of inferring one")
	rootCmd.PersistentFlags().StringVar(&prefixFlag, "prefix", "", "release tag prefix (e.g. v)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log side effects instead of performing them")
	rootCmd.PersistentFlags().BoolVar(&resumeFlag, "resume", false, "resume from the previous state file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(cleanCmd)
}

// initConfig resolves the layered configuration from flags, environment and
// files, and configures logging.
func initConfig() error {
	// .env files are a CI convenience; absence is not an error
	_ = godotenv.Load()

	cmdline := config.FromEnvironment(config.NewEnvironment())
	applyFlags(cmdline)

	var err error
	cfg, err = config.Resolve(cmdline)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	configureLogging()
	return nil
}

// applyFlags overlays explicit command-line flags on the environment layer.
func applyFlags(cmdline *config.Config) {
	if cfgFile != "" {
		cmdline.ConfigurationFile = cfgFile
	}
	if sharedFile != "" {
		cmdline.SharedConfigurationFile = sharedFile
	}
	if presetFlag != "" {
		cmdline.Preset = presetFlag
	}
	if directory != "" {
		cmdline.Directory = directory
	}
	if stateFile != "" {
		cmdline.StateFile = stateFile
	}
	if summaryFile != "" {
		cmdline.SummaryFile = summaryFile
	}
	if bumpFlag != "" {
		cmdline.Bump = bumpFlag
	}
	if versionFlag != "" {
		cmdline.Version = versionFlag
	}
	if prefixFlag != "" {
		cmdline.ReleasePrefix = prefixFlag
	}
	if dryRun {
		cmdline.DryRun = config.BoolPtr(true)
	}
	if resumeFlag {
		cmdline.Resume = config.BoolPtr(true)
	}
	if verbose {
		cmdline.Verbosity = "debug"
	}
	if logLevel != "" {
		cmdline.Verbosity = logLevel
	}
}

func configureLogging() {
	switch cfg.Verbosity {
	case "trace", "debug":
		logger.SetLevel(log.DebugLevel)
	case "warning", "warn":
		logger.SetLevel(log.WarnLevel)
	case "error", "fatal":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nyx %s\n", versionInfo.Version)
		if verbose {
			fmt.Printf("  commit: %s\n", versionInfo.Commit)
			fmt.Printf("  built:  %s\n", versionInfo.Date)
		}
	},
}

func printSuccess(msg string) {
	fmt.Println(styles.Success.Render("✓ " + msg))
}

func printTitle(msg string) {
	fmt.Println(styles.Title.Render(msg))
}

func printSubtle(msg string) {
	fmt.Println(styles.Subtle.Render(msg))
}
