package format

import (
	"io"

	"github.com/weightscope/weightscope/pkg/artifact"
	"github.com/weightscope/weightscope/pkg/onnx"
)

// onnxFormat implements Format for ONNX files.
type onnxFormat struct{}

func init() {
	Register(&onnxFormat{})
}

func (o *onnxFormat) Name() artifact.Format {
	return artifact.FormatONNX
}

// Sniff always reports false: protobuf messages carry no magic bytes, so
// ONNX files are recognized by extension only.
func (o *onnxFormat) Sniff(prefix []byte) bool {
	return false
}

func (o *onnxFormat) Parse(r io.Reader) (*artifact.Artifact, error) {
	return onnx.ParseReader(r)
}
