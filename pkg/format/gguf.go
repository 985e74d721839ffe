package format

import (
	"io"

	"github.com/weightscope/weightscope/pkg/artifact"
	"github.com/weightscope/weightscope/pkg/gguf"
)

// ggufFormat implements Format for GGUF files.
type ggufFormat struct{}

func init() {
	Register(&ggufFormat{})
}

func (g *ggufFormat) Name() artifact.Format {
	return artifact.FormatGGUF
}

// Sniff matches the 4-byte "GGUF" magic.
func (g *ggufFormat) Sniff(prefix []byte) bool {
	return len(prefix) >= 4 && string(prefix[:4]) == "GGUF"
}

func (g *ggufFormat) Parse(r io.Reader) (*artifact.Artifact, error) {
	return gguf.Parse(r)
}
