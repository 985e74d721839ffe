// Package commands implements the weightscope CLI commands.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	logJSON bool

	// Shared state
	log *logrus.Entry
)

// rootCmd is the root command for weightscope.
var rootCmd = &cobra.Command{
	Use:   "weightscope",
	Short: "Structural identity for ML weight files",
	Long: `weightscope reads the headers of GGUF, safetensors, and ONNX weight
files and reduces them to a structural identity: tensor names, dtypes,
shapes, and metadata, hashed into a deterministic fingerprint.

Example:
  weightscope id model.gguf
  weightscope diff model-v1.safetensors model-v2.safetensors`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help and version commands
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		// Setup logging
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.WarnLevel)
		}
		if logJSON {
			logger.SetFormatter(&logrus.JSONFormatter{})
		}

		// Check WEIGHTSCOPE_LOG_LEVEL environment variable
		if level := os.Getenv("WEIGHTSCOPE_LOG_LEVEL"); level != "" {
			if lvl, err := logrus.ParseLevel(level); err == nil {
				logger.SetLevel(lvl)
			}
		}

		log = logger.WithField("component", "weightscope")

		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !isExitSentinel(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.SetOut(os.Stdout)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")

	rootCmd.AddCommand(
		newInspectCmd(),
		newIDCmd(),
		newDiffCmd(),
		newSummaryCmd(),
		newVersionCmd(),
	)
}
