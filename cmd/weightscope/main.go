// weightscope inspects, fingerprints, and diffs machine-learning weight
// files by their structure: tensor names, dtypes, shapes, and metadata.
package main

import (
	"errors"
	"os"

	"github.com/weightscope/weightscope/cmd/weightscope/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		if errors.Is(err, commands.ErrDifferences) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
