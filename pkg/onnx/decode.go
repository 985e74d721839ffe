package onnx

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedModel indicates the input is not a well-formed protobuf
// ModelProto message.
var ErrMalformedModel = errors.New("malformed ONNX model message")

// Field numbers from the ONNX protobuf schema. Only the fields the
// artifact model consumes are decoded; everything else, including
// initializer raw_data, is skipped without being buffered.
const (
	// ModelProto
	fieldModelIRVersion       = 1
	fieldModelProducerName    = 2
	fieldModelProducerVersion = 3
	fieldModelDomain          = 4
	fieldModelModelVersion    = 5
	fieldModelGraph           = 7
	fieldModelOpsetImport     = 8

	// GraphProto
	fieldGraphNode        = 1
	fieldGraphName        = 2
	fieldGraphInitializer = 5
	fieldGraphInput       = 11
	fieldGraphOutput      = 12

	// NodeProto
	fieldNodeName   = 3
	fieldNodeOpType = 4

	// TensorProto
	fieldTensorDims     = 1
	fieldTensorDataType = 2
	fieldTensorName     = 8

	// ValueInfoProto
	fieldValueInfoName = 1

	// OperatorSetIdProto
	fieldOpsetDomain  = 1
	fieldOpsetVersion = 2
)

func wireError(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformedModel, protowire.ParseError(n))
}

// Decode decodes the protobuf wire form of an ONNX ModelProto into a
// Model. Unknown fields are skipped, so models produced by any ONNX
// release decode as long as the wire framing is intact.
func Decode(data []byte) (*Model, error) {
	model := &Model{}
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireError(n)
		}
		b = b[n:]
		switch {
		case num == fieldModelIRVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, wireError(m)
			}
			model.IRVersion = int64(v)
			b = b[m:]
		case num == fieldModelModelVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, wireError(m)
			}
			model.ModelVersion = int64(v)
			b = b[m:]
		case num == fieldModelProducerName && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			model.ProducerName = string(v)
			b = b[m:]
		case num == fieldModelProducerVersion && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			model.ProducerVersion = string(v)
			b = b[m:]
		case num == fieldModelDomain && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			model.Domain = string(v)
			b = b[m:]
		case num == fieldModelOpsetImport && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			opset, err := decodeOpset(v)
			if err != nil {
				return nil, err
			}
			model.OpsetImports = append(model.OpsetImports, opset)
			b = b[m:]
		case num == fieldModelGraph && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			graph, err := decodeGraph(v)
			if err != nil {
				return nil, err
			}
			model.Graph = graph
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, wireError(m)
			}
			b = b[m:]
		}
	}
	return model, nil
}

func decodeGraph(data []byte) (*Graph, error) {
	graph := &Graph{}
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireError(n)
		}
		b = b[n:]
		switch {
		case num == fieldGraphName && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			graph.Name = string(v)
			b = b[m:]
		case num == fieldGraphNode && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			node, err := decodeNode(v)
			if err != nil {
				return nil, err
			}
			graph.Nodes = append(graph.Nodes, node)
			b = b[m:]
		case num == fieldGraphInitializer && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			init, err := decodeTensorInfo(v)
			if err != nil {
				return nil, err
			}
			graph.Initializers = append(graph.Initializers, init)
			b = b[m:]
		case num == fieldGraphInput && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			name, err := decodeValueInfoName(v)
			if err != nil {
				return nil, err
			}
			graph.Inputs = append(graph.Inputs, name)
			b = b[m:]
		case num == fieldGraphOutput && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError(m)
			}
			name, err := decodeValueInfoName(v)
			if err != nil {
				return nil, err
			}
			graph.Outputs = append(graph.Outputs, name)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, wireError(m)
			}
			b = b[m:]
		}
	}
	return graph, nil
}

func decodeNode(data []byte) (Node, error) {
	var node Node
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return node, wireError(n)
		}
		b = b[n:]
		switch {
		case num == fieldNodeName && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return node, wireError(m)
			}
			node.Name = string(v)
			b = b[m:]
		case num == fieldNodeOpType && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return node, wireError(m)
			}
			node.OpType = string(v)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return node, wireError(m)
			}
			b = b[m:]
		}
	}
	return node, nil
}

// decodeTensorInfo decodes a TensorProto's descriptor fields. The dims
// field is repeated int64 and may arrive packed or unpacked.
func decodeTensorInfo(data []byte) (TensorInfo, error) {
	var info TensorInfo
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return info, wireError(n)
		}
		b = b[n:]
		switch {
		case num == fieldTensorDims && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return info, wireError(m)
			}
			info.Dims = append(info.Dims, int64(v))
			b = b[m:]
		case num == fieldTensorDims && typ == protowire.BytesType:
			packed, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return info, wireError(m)
			}
			for len(packed) > 0 {
				v, k := protowire.ConsumeVarint(packed)
				if k < 0 {
					return info, wireError(k)
				}
				info.Dims = append(info.Dims, int64(v))
				packed = packed[k:]
			}
			b = b[m:]
		case num == fieldTensorDataType && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return info, wireError(m)
			}
			info.DataType = int32(v)
			b = b[m:]
		case num == fieldTensorName && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return info, wireError(m)
			}
			info.Name = string(v)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return info, wireError(m)
			}
			b = b[m:]
		}
	}
	return info, nil
}

func decodeValueInfoName(data []byte) (string, error) {
	var name string
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", wireError(n)
		}
		b = b[n:]
		if num == fieldValueInfoName && typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return "", wireError(m)
			}
			name = string(v)
			b = b[m:]
			continue
		}
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return "", wireError(m)
		}
		b = b[m:]
	}
	return name, nil
}

func decodeOpset(data []byte) (OpsetID, error) {
	var opset OpsetID
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return opset, wireError(n)
		}
		b = b[n:]
		switch {
		case num == fieldOpsetDomain && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return opset, wireError(m)
			}
			opset.Domain = string(v)
			b = b[m:]
		case num == fieldOpsetVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return opset, wireError(m)
			}
			opset.Version = int64(v)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return opset, wireError(m)
			}
			b = b[m:]
		}
	}
	return opset, nil
}
