// Package onnx converts decoded ONNX model messages into artifacts. The
// package reads model- and graph-level header fields only; initializer
// payloads (raw_data) are skipped during decoding and never inspected.
package onnx

import (
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
	"slices"

	"github.com/weightscope/weightscope/pkg/artifact"
)

// ParseReader reads a serialized ONNX model from r, decodes its wire form
// and produces the artifact.
func ParseReader(r io.Reader) (*artifact.Artifact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	model, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Parse(model)
}

// ParseFile opens, decodes and parses an ONNX model file.
func ParseFile(path string) (*artifact.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ONNX file: %w", err)
	}
	defer f.Close()
	return ParseReader(f)
}

// Parse builds an artifact from an already-decoded model message. Absent
// model fields are simply omitted from metadata, never an error. The
// artifact version is the IR version, zero when absent.
func Parse(model *Model) (*artifact.Artifact, error) {
	if model == nil {
		return nil, errors.New("nil ONNX model")
	}

	a := artifact.New(artifact.FormatONNX)
	a.SetVersion(model.IRVersion)

	if model.IRVersion != 0 {
		a.Metadata["ir_version"] = artifact.Int(model.IRVersion)
	}
	if model.ProducerName != "" {
		a.Metadata["producer_name"] = artifact.String(model.ProducerName)
	}
	if model.ProducerVersion != "" {
		a.Metadata["producer_version"] = artifact.String(model.ProducerVersion)
	}
	if model.Domain != "" {
		a.Metadata["domain"] = artifact.String(model.Domain)
	}
	if model.ModelVersion != 0 {
		a.Metadata["model_version"] = artifact.Int(model.ModelVersion)
	}
	if len(model.OpsetImports) > 0 {
		versions := make([]artifact.Value, 0, len(model.OpsetImports))
		for _, op := range model.OpsetImports {
			versions = append(versions, artifact.Int(op.Version))
		}
		a.Metadata["opset_imports"] = artifact.Array(versions)
	}

	if g := model.Graph; g != nil {
		if len(g.Nodes) > 0 {
			opTypes := make([]string, 0, len(g.Nodes))
			for _, n := range g.Nodes {
				opTypes = append(opTypes, n.OpType)
			}
			slices.Sort(opTypes)
			opTypes = slices.Compact(opTypes)
			a.Metadata["node_types"] = stringArray(opTypes)
			a.Metadata["node_count"] = artifact.Int(int64(len(g.Nodes)))
		}

		for _, init := range g.Initializers {
			a.Tensors[init.Name] = initializerTensor(init)
		}

		if len(g.Inputs) > 0 {
			a.Metadata["input_names"] = stringArray(g.Inputs)
		}
		if len(g.Outputs) > 0 {
			a.Metadata["output_names"] = stringArray(g.Outputs)
		}
	}

	return a, nil
}

// initializerTensor builds a tensor descriptor from a graph initializer.
// The byte length is the saturating dimension product times the element
// width; unknown type codes fall back to a 1-byte width so the descriptor
// is still produced.
func initializerTensor(init TensorInfo) artifact.Tensor {
	shape := make([]uint64, 0, len(init.Dims))
	elements := uint64(1)
	for _, dim := range init.Dims {
		if dim < 0 {
			dim = 0
		}
		shape = append(shape, uint64(dim))
		hi, lo := bits.Mul64(elements, uint64(dim))
		if hi != 0 {
			elements = 0
			continue
		}
		elements = lo
	}
	hi, byteLength := bits.Mul64(elements, elementSize(init.DataType))
	if hi != 0 {
		byteLength = 0
	}
	return artifact.Tensor{
		Name:       init.Name,
		Dtype:      dtypeName(init.DataType),
		Shape:      shape,
		ByteLength: byteLength,
	}
}

func stringArray(values []string) artifact.Value {
	elems := make([]artifact.Value, 0, len(values))
	for _, s := range values {
		elems = append(elems, artifact.String(s))
	}
	return artifact.Array(elems)
}
