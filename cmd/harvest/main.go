package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rohankatakam/classharvest/internal/config"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile   string
	verbose   bool
	logFile   string
	logFormat string
	logger    *logging.Logger
	cfg       *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if logger != nil {
		logger.Close()
	}
	if err != nil {
		fmt.Fprint(os.Stderr, errorMessage(err, verbose))
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration errors that stop a command before it starts, 1 otherwise
func exitCode(err error) int {
	if errors.IsFatal(err) {
		return 2
	}
	return 1
}

func errorMessage(err error, detailed bool) string {
	var e *errors.Error
	if detailed && stderrors.As(err, &e) {
		return "Error: " + e.DetailedString()
	}
	return fmt.Sprintf("Error: %v\n", err)
}

var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest compiled class files for before/after commit datasets",
	Long: `harvest clones each configured project, checks out the parent ("before")
or the commit itself ("after") of every dataset commit directory, builds the
working copy with its own build tool (or javac when there is none), and copies
the class files matching the dataset's Java sources into
<stage>/<project>/<commit>/compiled/.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to load configuration")
		}

		if verbose {
			cfg.Log.Level = "debug"
		}
		if logFile != "" {
			cfg.Log.File = logFile
		}
		if logFormat != "" {
			cfg.Log.Format = logFormat
		}

		logger, err = logging.New(logging.Config{
			Level:      cfg.Log.Level,
			Format:     logging.Format(cfg.Log.Format),
			OutputFile: cfg.Log.File,
		}, os.Stdout)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to set up logging")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: harvest.yaml in ., .classharvest or ~/.classharvest)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (streams tool output)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: auto, text or json")

	rootCmd.SetVersionTemplate(`harvest {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(configCmd)
}
