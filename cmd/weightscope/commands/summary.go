package commands

import (
	"github.com/spf13/cobra"
)

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary FILE...",
		Short: "Print one-line summaries of weight files",
		Long: `Summary prints a compact comma-separated line per file:
format, version, tensor count, metadata count, and structural hash.

Examples:
  weightscope summary model.gguf
  weightscope summary checkpoints/*.safetensors`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, args)
		},
	}

	return cmd
}

func runSummary(cmd *cobra.Command, paths []string) error {
	for _, path := range paths {
		a, hash, err := loadIdentified(path)
		if err != nil {
			return err
		}
		cmd.Printf("%s,%s,%d,%d,%s\n",
			a.Format, formatVersion(a), len(a.Tensors), len(a.Metadata), hash)
	}
	return nil
}
