package format

import (
	"encoding/binary"
	"io"

	"github.com/weightscope/weightscope/pkg/artifact"
	"github.com/weightscope/weightscope/pkg/safetensors"
)

// safetensorsFormat implements Format for safetensors files.
type safetensorsFormat struct{}

func init() {
	Register(&safetensorsFormat{})
}

func (s *safetensorsFormat) Name() artifact.Format {
	return artifact.FormatSafetensors
}

// Sniff matches a plausible 8-byte little-endian header length followed by
// the opening brace of the JSON header. Safetensors has no magic bytes;
// this keeps detection from misrouting obvious safetensors files whose
// extension was lost.
func (s *safetensorsFormat) Sniff(prefix []byte) bool {
	if len(prefix) < 9 {
		return false
	}
	headerLen := binary.LittleEndian.Uint64(prefix[:8])
	return headerLen > 0 && prefix[8] == '{'
}

func (s *safetensorsFormat) Parse(r io.Reader) (*artifact.Artifact, error) {
	return safetensors.Parse(r)
}
