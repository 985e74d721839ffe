// Package diff computes precise structural differences between two
// artifacts: which metadata keys and tensors were added, removed or
// changed, and for changed tensors exactly which of dtype, shape and byte
// length differ.
package diff

import (
	"slices"

	"github.com/weightscope/weightscope/pkg/artifact"
)

// Result is the structural diff between two artifacts. All slices are
// sorted by key or tensor name so that rendered output is deterministic
// and itself diffable.
type Result struct {
	Schema             uint32           `json:"schema"`
	FormatEqual        bool             `json:"format_equal"`
	HashEqual          bool             `json:"hash_equal"`
	TensorCountEqual   bool             `json:"tensor_count_equal"`
	MetadataCountEqual bool             `json:"metadata_count_equal"`
	MetadataAdded      []string         `json:"metadata_added"`
	MetadataRemoved    []string         `json:"metadata_removed"`
	MetadataChanged    []MetadataChange `json:"metadata_changed"`
	TensorsAdded       []string         `json:"tensors_added"`
	TensorsRemoved     []string         `json:"tensors_removed"`
	TensorChanges      []TensorChange   `json:"tensor_changes"`
}

// MetadataChange records a metadata key whose value differs, with both
// sides.
type MetadataChange struct {
	Key      string         `json:"key"`
	OldValue artifact.Value `json:"old_value"`
	NewValue artifact.Value `json:"new_value"`
}

// TensorChange records a tensor present on both sides with at least one
// differing field. Unchanged fields stay nil so the record carries no
// noise.
type TensorChange struct {
	Name          string   `json:"name"`
	DtypeOld      *string  `json:"dtype_old"`
	DtypeNew      *string  `json:"dtype_new"`
	ShapeOld      []uint64 `json:"shape_old"`
	ShapeNew      []uint64 `json:"shape_new"`
	ByteLengthOld *uint64  `json:"byte_length_old"`
	ByteLengthNew *uint64  `json:"byte_length_new"`
}

// Compare computes the structural diff between a and b. It is a pure
// function: neither artifact is mutated. HashEqual is left false; the
// caller sets it after hashing both artifacts, since hashing is a separate
// pass the diff does not require.
func Compare(a, b *artifact.Artifact) *Result {
	r := &Result{
		Schema:             1,
		FormatEqual:        a.Format == b.Format,
		TensorCountEqual:   len(a.Tensors) == len(b.Tensors),
		MetadataCountEqual: len(a.Metadata) == len(b.Metadata),
		MetadataAdded:      []string{},
		MetadataRemoved:    []string{},
		MetadataChanged:    []MetadataChange{},
		TensorsAdded:       []string{},
		TensorsRemoved:     []string{},
		TensorChanges:      []TensorChange{},
	}

	for _, key := range sortedKeys(b.Metadata) {
		if _, ok := a.Metadata[key]; !ok {
			r.MetadataAdded = append(r.MetadataAdded, key)
		}
	}
	for _, key := range sortedKeys(a.Metadata) {
		oldValue := a.Metadata[key]
		newValue, ok := b.Metadata[key]
		switch {
		case !ok:
			r.MetadataRemoved = append(r.MetadataRemoved, key)
		case !oldValue.Equal(newValue):
			r.MetadataChanged = append(r.MetadataChanged, MetadataChange{
				Key:      key,
				OldValue: oldValue,
				NewValue: newValue,
			})
		}
	}

	for _, name := range sortedKeys(b.Tensors) {
		if _, ok := a.Tensors[name]; !ok {
			r.TensorsAdded = append(r.TensorsAdded, name)
		}
	}
	for _, name := range sortedKeys(a.Tensors) {
		oldTensor := a.Tensors[name]
		newTensor, ok := b.Tensors[name]
		if !ok {
			r.TensorsRemoved = append(r.TensorsRemoved, name)
			continue
		}
		if change, changed := compareTensor(oldTensor, newTensor); changed {
			r.TensorChanges = append(r.TensorChanges, change)
		}
	}

	return r
}

// compareTensor compares dtype, shape and byte length independently and
// reports a change record only when at least one differs.
func compareTensor(before, after artifact.Tensor) (TensorChange, bool) {
	change := TensorChange{Name: before.Name}
	changed := false
	if before.Dtype != after.Dtype {
		change.DtypeOld = &before.Dtype
		change.DtypeNew = &after.Dtype
		changed = true
	}
	if !slices.Equal(before.Shape, after.Shape) {
		change.ShapeOld = before.Shape
		change.ShapeNew = after.Shape
		changed = true
	}
	if before.ByteLength != after.ByteLength {
		change.ByteLengthOld = &before.ByteLength
		change.ByteLengthNew = &after.ByteLength
		changed = true
	}
	return change, changed
}

// HasChanges reports whether any of the six change collections is
// non-empty. This is the authoritative "are these semantically different"
// predicate; count and format flags are informational.
func (r *Result) HasChanges() bool {
	return len(r.MetadataAdded) > 0 ||
		len(r.MetadataRemoved) > 0 ||
		len(r.MetadataChanged) > 0 ||
		len(r.TensorsAdded) > 0 ||
		len(r.TensorsRemoved) > 0 ||
		len(r.TensorChanges) > 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
