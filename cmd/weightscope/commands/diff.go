package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/weightscope/weightscope/pkg/diff"
)

func newDiffCmd() *cobra.Command {
	var (
		jsonOutput bool
		exitCode   bool
	)

	cmd := &cobra.Command{
		Use:   "diff FILE_A FILE_B",
		Short: "Compare the structure of two weight files",
		Long: `Diff compares two weight files structurally and reports added, removed,
and changed metadata and tensors. Tensor data is never read; only the
headers are compared.

Examples:
  weightscope diff base.gguf finetuned.gguf
  weightscope diff --json --exit-code v1.safetensors v2.safetensors`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args[0], args[1], jsonOutput, exitCode)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with status 1 when the files differ")

	return cmd
}

func runDiff(cmd *cobra.Command, pathA, pathB string, jsonOutput, exitCode bool) error {
	a, hashA, err := loadIdentified(pathA)
	if err != nil {
		return err
	}
	b, hashB, err := loadIdentified(pathB)
	if err != nil {
		return err
	}

	r := diff.Compare(a, b)
	r.HashEqual = hashA == hashB

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return err
		}
	} else {
		renderDiff(cmd, r)
	}

	if exitCode && (r.HasChanges() || !r.FormatEqual) {
		return ErrDifferences
	}
	return nil
}

// renderDiff prints a unified-diff-flavored report: "+" for additions,
// "-" for removals, "~" for changes.
func renderDiff(cmd *cobra.Command, r *diff.Result) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	changed := color.New(color.FgYellow)
	out := cmd.OutOrStdout()

	if !r.FormatEqual {
		changed.Fprintln(out, "~ formats differ")
	}
	if r.HashEqual && !r.HasChanges() {
		cmd.Println("structurally identical")
		return
	}

	for _, k := range r.MetadataAdded {
		added.Fprintf(out, "+ metadata %s\n", k)
	}
	for _, k := range r.MetadataRemoved {
		removed.Fprintf(out, "- metadata %s\n", k)
	}
	for _, c := range r.MetadataChanged {
		changed.Fprintf(out, "~ metadata %s: %s -> %s\n", c.Key, c.OldValue.String(), c.NewValue.String())
	}

	for _, name := range r.TensorsAdded {
		added.Fprintf(out, "+ tensor %s\n", name)
	}
	for _, name := range r.TensorsRemoved {
		removed.Fprintf(out, "- tensor %s\n", name)
	}
	for _, c := range r.TensorChanges {
		changed.Fprintf(out, "~ tensor %s:%s\n", c.Name, tensorChangeDetail(c))
	}
}

// tensorChangeDetail renders the changed fields of a tensor, skipping
// the ones that stayed equal.
func tensorChangeDetail(c diff.TensorChange) string {
	var s string
	if c.DtypeOld != nil {
		s += fmt.Sprintf(" dtype %s -> %s", *c.DtypeOld, *c.DtypeNew)
	}
	if c.ShapeOld != nil {
		s += fmt.Sprintf(" shape %s -> %s", formatShape(c.ShapeOld), formatShape(c.ShapeNew))
	}
	if c.ByteLengthOld != nil {
		s += fmt.Sprintf(" bytes %d -> %d", *c.ByteLengthOld, *c.ByteLengthNew)
	}
	return s
}
