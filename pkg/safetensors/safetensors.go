// Package safetensors decodes safetensors file headers into artifacts. A
// safetensors file begins with an 8-byte little-endian header length
// followed by a JSON object; tensor data follows the header and is never
// read.
package safetensors

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/weightscope/weightscope/pkg/artifact"
)

// maxHeaderSize bounds the header allocation before the untrusted length
// prefix is trusted.
const maxHeaderSize = 100 * 1024 * 1024

var (
	// ErrHeaderTooLarge indicates the declared header length exceeds the
	// 100 MiB ceiling. The check happens before the header body is read.
	ErrHeaderTooLarge = errors.New("safetensors header too large")
	// ErrInvalidHeader indicates the header is not a valid UTF-8 JSON
	// object of the expected shape.
	ErrInvalidHeader = errors.New("invalid safetensors JSON header")
)

// MissingFieldError indicates a tensor descriptor lacks one of its three
// required fields.
type MissingFieldError struct {
	Tensor string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("tensor %q missing required field %q", e.Tensor, e.Field)
}

// InvalidShapeError indicates a tensor's shape contains a non-integer or
// negative element.
type InvalidShapeError struct {
	Tensor string
	// Value is the offending element, or the whole shape field when it is
	// not an array of numbers at all.
	Value string
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("tensor %q has invalid shape element: %s", e.Tensor, e.Value)
}

// InvalidByteLengthError indicates a tensor's data_offsets describe an
// empty or negative byte range.
type InvalidByteLengthError struct {
	Tensor string
	Start  uint64
	End    uint64
}

func (e *InvalidByteLengthError) Error() string {
	return fmt.Sprintf("tensor %q has invalid data_offsets: end %d <= start %d", e.Tensor, e.End, e.Start)
}

// ParseFile opens and parses the header of a safetensors file.
func ParseFile(path string) (*artifact.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open safetensors file: %w", err)
	}
	defer f.Close()
	return Parse(bufio.NewReader(f))
}

// Parse decodes a safetensors header from r and returns the artifact.
func Parse(r io.Reader) (*artifact.Artifact, error) {
	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}
	if headerLen > maxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrHeaderTooLarge, headerLen, maxHeaderSize)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !utf8.Valid(header) {
		return nil, fmt.Errorf("%w: header is not valid UTF-8", ErrInvalidHeader)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(header, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	a := artifact.New(artifact.FormatSafetensors)
	for key, raw := range entries {
		if key == "__metadata__" {
			if err := parseMetadata(raw, a.Metadata); err != nil {
				return nil, err
			}
			continue
		}
		t, err := parseTensor(key, raw)
		if err != nil {
			return nil, err
		}
		a.Tensors[key] = t
	}
	return a, nil
}

// parseMetadata fills meta from the __metadata__ object. String values are
// the common case; numeric, boolean and null values are preserved as their
// canonical variants rather than stringified.
func parseMetadata(raw json.RawMessage, meta map[string]artifact.Value) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var entries map[string]any
	if err := dec.Decode(&entries); err != nil {
		return fmt.Errorf("%w: __metadata__ is not an object", ErrInvalidHeader)
	}
	for key, v := range entries {
		value, err := metadataValue(v)
		if err != nil {
			return fmt.Errorf("%w: __metadata__ key %q: %v", ErrInvalidHeader, key, err)
		}
		meta[key] = value
	}
	return nil
}

func metadataValue(v any) (artifact.Value, error) {
	switch v := v.(type) {
	case nil:
		return artifact.Null(), nil
	case bool:
		return artifact.Bool(v), nil
	case string:
		return artifact.String(v), nil
	case json.Number:
		if n, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return artifact.Int(n), nil
		}
		f, err := v.Float64()
		if err != nil {
			return artifact.Value{}, fmt.Errorf("unrepresentable number %s", v)
		}
		return artifact.Float(f), nil
	default:
		return artifact.Value{}, errors.New("nested values are not supported")
	}
}

// parseTensor validates and converts one tensor descriptor object. All
// three fields are required; their absence or malformation is a specific
// typed error, never a silently defaulted tensor.
func parseTensor(name string, raw json.RawMessage) (artifact.Tensor, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return artifact.Tensor{}, fmt.Errorf("%w: tensor %q is not an object", ErrInvalidHeader, name)
	}

	dtypeRaw, ok := fields["dtype"]
	if !ok {
		return artifact.Tensor{}, &MissingFieldError{Tensor: name, Field: "dtype"}
	}
	var dtype string
	if err := json.Unmarshal(dtypeRaw, &dtype); err != nil {
		return artifact.Tensor{}, fmt.Errorf("%w: tensor %q dtype is not a string", ErrInvalidHeader, name)
	}
	dtype = strings.ToLower(dtype)

	shapeRaw, ok := fields["shape"]
	if !ok {
		return artifact.Tensor{}, &MissingFieldError{Tensor: name, Field: "shape"}
	}
	var rawShape []json.Number
	if err := json.Unmarshal(shapeRaw, &rawShape); err != nil {
		return artifact.Tensor{}, &InvalidShapeError{Tensor: name, Value: string(shapeRaw)}
	}
	shape := make([]uint64, 0, len(rawShape))
	for _, n := range rawShape {
		dim, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return artifact.Tensor{}, &InvalidShapeError{Tensor: name, Value: n.String()}
		}
		shape = append(shape, dim)
	}

	offsetsRaw, ok := fields["data_offsets"]
	if !ok {
		return artifact.Tensor{}, &MissingFieldError{Tensor: name, Field: "data_offsets"}
	}
	var offsets []json.Number
	if err := json.Unmarshal(offsetsRaw, &offsets); err != nil || len(offsets) != 2 {
		return artifact.Tensor{}, fmt.Errorf("%w: tensor %q data_offsets must be a two-element array", ErrInvalidHeader, name)
	}
	start, err := strconv.ParseUint(offsets[0].String(), 10, 64)
	if err != nil {
		return artifact.Tensor{}, fmt.Errorf("%w: tensor %q data_offsets start: %v", ErrInvalidHeader, name, err)
	}
	end, err := strconv.ParseUint(offsets[1].String(), 10, 64)
	if err != nil {
		return artifact.Tensor{}, fmt.Errorf("%w: tensor %q data_offsets end: %v", ErrInvalidHeader, name, err)
	}
	if end <= start {
		return artifact.Tensor{}, &InvalidByteLengthError{Tensor: name, Start: start, End: end}
	}

	return artifact.Tensor{
		Name:       name,
		Dtype:      dtype,
		Shape:      shape,
		ByteLength: end - start,
	}, nil
}
