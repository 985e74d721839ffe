package onnx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func encodeTensor(name string, dims []int64, dataType int32, packed bool) []byte {
	var msg []byte
	if packed {
		var body []byte
		for _, d := range dims {
			body = protowire.AppendVarint(body, uint64(d))
		}
		msg = appendMessage(msg, fieldTensorDims, body)
	} else {
		for _, d := range dims {
			msg = appendVarint(msg, fieldTensorDims, uint64(d))
		}
	}
	msg = appendVarint(msg, fieldTensorDataType, uint64(dataType))
	msg = appendString(msg, fieldTensorName, name)
	return msg
}

func encodeNode(name, opType string) []byte {
	var msg []byte
	msg = appendString(msg, fieldNodeName, name)
	msg = appendString(msg, fieldNodeOpType, opType)
	return msg
}

func encodeValueInfo(name string) []byte {
	return appendString(nil, fieldValueInfoName, name)
}

func TestDecodeModel(t *testing.T) {
	var graph []byte
	graph = appendString(graph, fieldGraphName, "main")
	graph = appendMessage(graph, fieldGraphNode, encodeNode("n0", "MatMul"))
	graph = appendMessage(graph, fieldGraphNode, encodeNode("n1", "Add"))
	graph = appendMessage(graph, fieldGraphInitializer, encodeTensor("weight", []int64{2, 3}, 1, false))
	graph = appendMessage(graph, fieldGraphInput, encodeValueInfo("x"))
	graph = appendMessage(graph, fieldGraphOutput, encodeValueInfo("y"))

	var opset []byte
	opset = appendString(opset, fieldOpsetDomain, "ai.onnx.ml")
	opset = appendVarint(opset, fieldOpsetVersion, 3)

	var data []byte
	data = appendVarint(data, fieldModelIRVersion, 8)
	data = appendString(data, fieldModelProducerName, "pytorch")
	data = appendString(data, fieldModelProducerVersion, "2.1.0")
	data = appendString(data, fieldModelDomain, "ai.example")
	data = appendVarint(data, fieldModelModelVersion, 3)
	data = appendMessage(data, fieldModelGraph, graph)
	data = appendMessage(data, fieldModelOpsetImport, opset)

	model, err := Decode(data)
	require.NoError(t, err)

	want := &Model{
		IRVersion:       8,
		ProducerName:    "pytorch",
		ProducerVersion: "2.1.0",
		Domain:          "ai.example",
		ModelVersion:    3,
		OpsetImports:    []OpsetID{{Domain: "ai.onnx.ml", Version: 3}},
		Graph: &Graph{
			Name: "main",
			Nodes: []Node{
				{Name: "n0", OpType: "MatMul"},
				{Name: "n1", OpType: "Add"},
			},
			Initializers: []TensorInfo{
				{Name: "weight", Dims: []int64{2, 3}, DataType: 1},
			},
			Inputs:  []string{"x"},
			Outputs: []string{"y"},
		},
	}
	assert.Empty(t, cmp.Diff(want, model))
}

func TestDecodePackedDims(t *testing.T) {
	graph := appendMessage(nil, fieldGraphInitializer, encodeTensor("w", []int64{4, 5, 6}, 10, true))
	data := appendMessage(nil, fieldModelGraph, graph)

	model, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, model.Graph)
	require.Len(t, model.Graph.Initializers, 1)
	assert.Equal(t, []int64{4, 5, 6}, model.Graph.Initializers[0].Dims)
}

// Unknown fields, including large raw_data payloads, are skipped without
// affecting the decoded result.
func TestDecodeSkipsUnknownFields(t *testing.T) {
	rawData := make([]byte, 1024)
	tensor := encodeTensor("w", []int64{16}, 1, false)
	tensor = appendMessage(tensor, 9, rawData) // TensorProto.raw_data

	graph := appendMessage(nil, fieldGraphInitializer, tensor)
	graph = appendString(graph, 10, "doc string") // GraphProto.doc_string

	data := appendVarint(nil, fieldModelIRVersion, 7)
	data = appendMessage(data, fieldModelGraph, graph)
	data = appendString(data, 6, "doc") // ModelProto.doc_string

	model, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, int64(7), model.IRVersion)
	require.NotNil(t, model.Graph)
	require.Len(t, model.Graph.Initializers, 1)
	assert.Equal(t, "w", model.Graph.Initializers[0].Name)
}

func TestDecodeEmptyInput(t *testing.T) {
	model, err := Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, &Model{}, model)
}

func TestDecodeMalformedInput(t *testing.T) {
	inputs := [][]byte{
		{0xff},             // truncated tag
		{0x08},             // varint field with no payload
		{0x3a, 0x10, 0x00}, // graph field declaring more bytes than present
	}
	for _, data := range inputs {
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrMalformedModel, "input %x", data)
	}
}

func TestDecodeTruncatedEverywhere(t *testing.T) {
	graph := appendMessage(nil, fieldGraphNode, encodeNode("n", "Relu"))
	full := appendVarint(nil, fieldModelIRVersion, 8)
	full = appendMessage(full, fieldModelGraph, graph)

	// No prefix may panic; short prefixes either fail or decode the
	// fields that happen to be complete.
	for n := 0; n < len(full); n++ {
		_, _ = Decode(full[:n])
	}
}
