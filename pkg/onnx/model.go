package onnx

// Model is the decoded shape of an ONNX ModelProto, reduced to the fields
// the artifact model consumes. Decoding the protobuf wire format into this
// structure is the protobuf library's job (see Decode); the parser itself
// never touches wire bytes.
//
// Proto3 scalar semantics apply: a zero value means the field was absent.
type Model struct {
	IRVersion       int64
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	OpsetImports    []OpsetID
	Graph           *Graph
}

// OpsetID is one operator-set import declaration.
type OpsetID struct {
	Domain  string
	Version int64
}

// Graph holds the parts of an ONNX GraphProto the artifact model consumes:
// node operator types, stored weight initializers and the interface tensor
// names.
type Graph struct {
	Name         string
	Nodes        []Node
	Initializers []TensorInfo
	// Inputs and Outputs are the names of the graph's interface tensors.
	// They describe the graph boundary, not stored weights, and end up in
	// artifact metadata rather than the tensor table.
	Inputs  []string
	Outputs []string
}

// Node is one graph node, reduced to its operator type.
type Node struct {
	Name   string
	OpType string
}

// TensorInfo describes one graph initializer: a stored weight tensor's
// name, dimensions and element type code.
type TensorInfo struct {
	Name     string
	Dims     []int64
	DataType int32
}
