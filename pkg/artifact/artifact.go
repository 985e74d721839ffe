// Package artifact defines the canonical, format-agnostic structural
// description of a model weight file: its format, header metadata and
// per-tensor descriptors. Artifacts are produced by the format parsers and
// consumed read-only by the hashing and diffing layers.
package artifact

import (
	"slices"
)

// Format identifies the on-disk model file format an artifact was parsed
// from.
type Format string

const (
	// FormatGGUF is the llama.cpp GGUF binary format.
	FormatGGUF Format = "gguf"
	// FormatSafetensors is the Hugging Face safetensors format.
	FormatSafetensors Format = "safetensors"
	// FormatONNX is the ONNX protobuf format.
	FormatONNX Format = "onnx"
)

// Artifact is the canonical description of one model file. It is a pure
// value tree: parsers build it once and nothing mutates it afterwards, so
// artifacts can be hashed and diffed concurrently without locking.
//
// Metadata and Tensors are keyed maps whose iteration order carries no
// meaning; every consumer that needs a stable order sorts the keys (the
// canonical JSON encoding sorts them automatically).
type Artifact struct {
	Format Format `json:"format"`
	// Version is the GGUF format revision or ONNX IR version. Safetensors
	// files have no version; the field is omitted.
	Version  *int64            `json:"version,omitempty"`
	Metadata map[string]Value  `json:"metadata"`
	Tensors  map[string]Tensor `json:"tensors"`
}

// Tensor describes one weight tensor's structure, never its data.
type Tensor struct {
	Name string `json:"name"`
	// Dtype is the lower-case element type name, e.g. "f32", "q4_k",
	// "bf16". Unrecognized numeric codes appear as "unknown_<code>".
	Dtype string `json:"dtype"`
	// Shape holds the dimension sizes; empty for scalar tensors.
	Shape []uint64 `json:"shape"`
	// ByteLength is the declared or derived payload size. Zero means the
	// encoding's byte size is unknown (block-quantized types).
	ByteLength uint64 `json:"byte_length"`
}

// New returns an empty artifact for the given format with initialized maps.
func New(format Format) *Artifact {
	return &Artifact{
		Format:   format,
		Metadata: make(map[string]Value),
		Tensors:  make(map[string]Tensor),
	}
}

// SetVersion records the format revision.
func (a *Artifact) SetVersion(v int64) {
	a.Version = &v
}

// MetadataKeys returns the metadata keys in sorted order.
func (a *Artifact) MetadataKeys() []string {
	keys := make([]string, 0, len(a.Metadata))
	for k := range a.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// TensorNames returns the tensor names in sorted order.
func (a *Artifact) TensorNames() []string {
	names := make([]string, 0, len(a.Tensors))
	for n := range a.Tensors {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	c := New(a.Format)
	if a.Version != nil {
		c.SetVersion(*a.Version)
	}
	for k, v := range a.Metadata {
		c.Metadata[k] = v
	}
	for name, t := range a.Tensors {
		t.Shape = slices.Clone(t.Shape)
		c.Tensors[name] = t
	}
	return c
}
