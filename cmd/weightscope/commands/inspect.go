package commands

import (
	"encoding/json"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// inspectOutput is the JSON document printed by inspect --json.
type inspectOutput struct {
	Schema         int               `json:"schema"`
	Format         string            `json:"format"`
	Version        *int64            `json:"version,omitempty"`
	TensorCount    int               `json:"tensor_count"`
	MetadataCount  int               `json:"metadata_count"`
	StructuralHash string            `json:"structural_hash"`
	Metadata       map[string]string `json:"metadata"`
}

func newInspectCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the structural header of a weight file",
		Long: `Inspect prints the structural header of a weight file: format, version,
metadata, and the full tensor table with dtypes, shapes, and sizes.

Examples:
  weightscope inspect model.gguf
  weightscope inspect --json model.safetensors`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runInspect(cmd *cobra.Command, path string, jsonOutput bool) error {
	a, hash, err := loadIdentified(path)
	if err != nil {
		return err
	}
	log.WithField("file", path).WithField("format", a.Format).Debug("parsed artifact")

	if jsonOutput {
		out := inspectOutput{
			Schema:         1,
			Format:         string(a.Format),
			Version:        a.Version,
			TensorCount:    len(a.Tensors),
			MetadataCount:  len(a.Metadata),
			StructuralHash: hash,
			Metadata:       make(map[string]string, len(a.Metadata)),
		}
		for k, v := range a.Metadata {
			out.Metadata[k] = v.String()
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	cmd.Printf("Format:   %s\n", a.Format)
	cmd.Printf("Version:  %s\n", formatVersion(a))
	cmd.Printf("Hash:     %s\n", hash)
	cmd.Printf("Tensors:  %d\n", len(a.Tensors))
	cmd.Printf("Metadata: %d\n", len(a.Metadata))

	if len(a.Metadata) > 0 {
		cmd.Println()
		for _, k := range a.MetadataKeys() {
			cmd.Printf("  %s = %s\n", k, a.Metadata[k].String())
		}
	}

	if len(a.Tensors) > 0 {
		cmd.Println()
		table := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"TENSOR", "DTYPE", "SHAPE", "SIZE"}),
		)
		for _, name := range a.TensorNames() {
			t := a.Tensors[name]
			table.Append([]string{
				t.Name,
				t.Dtype,
				formatShape(t.Shape),
				formatBytes(t.ByteLength),
			})
		}
		table.Render()
	}

	return nil
}
