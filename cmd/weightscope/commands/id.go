package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// idOutput is the JSON document printed by id --json.
type idOutput struct {
	Schema         int    `json:"schema"`
	Format         string `json:"format"`
	StructuralHash string `json:"structural_hash"`
	TensorCount    int    `json:"tensor_count"`
	MetadataCount  int    `json:"metadata_count"`
}

func newIDCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "id FILE",
		Short: "Print the structural hash of a weight file",
		Long: `Id computes the structural identity hash of a weight file. Two files
with the same tensor names, dtypes, shapes, and metadata produce the
same hash regardless of tensor data or header ordering.

Examples:
  weightscope id model.gguf
  weightscope id --json model.onnx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runID(cmd, args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runID(cmd *cobra.Command, path string, jsonOutput bool) error {
	a, hash, err := loadIdentified(path)
	if err != nil {
		return err
	}

	if jsonOutput {
		out := idOutput{
			Schema:         1,
			Format:         string(a.Format),
			StructuralHash: hash,
			TensorCount:    len(a.Tensors),
			MetadataCount:  len(a.Metadata),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	cmd.Printf("%s  %s\n", hash, path)
	return nil
}
