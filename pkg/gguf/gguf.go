// Package gguf decodes GGUF file headers into artifacts. Only the header is
// read: metadata key-value pairs and tensor descriptors. Tensor payloads
// are never touched; their byte lengths are computed from the declared
// shapes and element types.
//
// The decoder treats its input as untrusted. Every count read from the
// header is checked against a hard ceiling before the corresponding
// allocation, so a malicious header cannot trigger memory exhaustion.
package gguf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/weightscope/weightscope/pkg/artifact"
)

// ggufMagic is the little-endian encoding of the bytes "GGUF".
const ggufMagic = 0x46554747

const (
	maxTensorCount   = 100_000
	maxMetadataCount = 10_000
	maxArrayElements = 100_000
	maxDimensions    = 32
	maxStringLength  = 1_000_000
)

var (
	// ErrInvalidMagic indicates the file does not start with "GGUF".
	ErrInvalidMagic = errors.New("invalid magic number")
	// ErrInvalidHeader indicates a structurally unparseable header: an
	// unknown metadata type tag, an oversized or non-UTF-8 string, or a
	// nested array.
	ErrInvalidHeader = errors.New("unable to parse GGUF header")
	// ErrUnsupportedVersion indicates a format revision outside 1-4.
	ErrUnsupportedVersion = errors.New("unsupported GGUF version")
	// ErrTensorCountTooLarge indicates the declared tensor count exceeds
	// the hard ceiling.
	ErrTensorCountTooLarge = errors.New("tensor count exceeds maximum")
	// ErrMetadataCountTooLarge indicates the declared metadata entry count
	// exceeds the hard ceiling.
	ErrMetadataCountTooLarge = errors.New("metadata count exceeds maximum")
	// ErrArrayTooLarge indicates a metadata array's declared element count
	// exceeds the hard ceiling.
	ErrArrayTooLarge = errors.New("array element count exceeds maximum")
	// ErrDimensionsTooLarge indicates a tensor declares more dimensions
	// than the hard ceiling.
	ErrDimensionsTooLarge = errors.New("tensor dimensions exceed maximum")
)

// Metadata value type tags as defined by the GGUF specification.
const (
	typeUint8 uint32 = iota
	typeInt8
	typeUint16
	typeInt16
	typeUint32
	typeInt32
	typeFloat32
	typeBool
	typeString
	typeArray
	typeUint64
	typeInt64
	typeFloat64
)

// ParseFile opens and parses the header of a GGUF file.
func ParseFile(path string) (*artifact.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GGUF file: %w", err)
	}
	defer f.Close()
	return Parse(bufio.NewReader(f))
}

// Parse decodes a GGUF header from r and returns the artifact. The reader
// is consumed up to the end of the tensor descriptor table; tensor data is
// never read.
func Parse(r io.Reader) (*artifact.Artifact, error) {
	magic, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != ggufMagic {
		return nil, ErrInvalidMagic
	}

	version, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version < 1 || version > 4 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	tensorCount, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("read tensor count: %w", err)
	}
	if tensorCount > maxTensorCount {
		return nil, fmt.Errorf("%w (%d): %d", ErrTensorCountTooLarge, maxTensorCount, tensorCount)
	}

	kvCount, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("read metadata count: %w", err)
	}
	if kvCount > maxMetadataCount {
		return nil, fmt.Errorf("%w (%d): %d", ErrMetadataCountTooLarge, maxMetadataCount, kvCount)
	}

	a := artifact.New(artifact.FormatGGUF)
	a.SetVersion(int64(version))

	for i := uint64(0); i < kvCount; i++ {
		key, value, err := readKV(r)
		if err != nil {
			return nil, fmt.Errorf("metadata entry %d: %w", i, err)
		}
		a.Metadata[key] = value
	}

	for i := uint64(0); i < tensorCount; i++ {
		t, err := readTensorInfo(r)
		if err != nil {
			return nil, fmt.Errorf("tensor %d: %w", i, err)
		}
		a.Tensors[t.Name] = t
	}

	return a, nil
}

// readKV reads one metadata entry: a length-prefixed key, a type tag and
// the typed value.
func readKV(r io.Reader) (string, artifact.Value, error) {
	key, err := readString(r)
	if err != nil {
		return "", artifact.Value{}, fmt.Errorf("read key: %w", err)
	}
	typ, err := readUint32(r)
	if err != nil {
		return "", artifact.Value{}, fmt.Errorf("read value type: %w", err)
	}
	value, err := readValue(r, typ)
	if err != nil {
		return "", artifact.Value{}, fmt.Errorf("key %q: %w", key, err)
	}
	return key, value, nil
}

func readValue(r io.Reader, typ uint32) (artifact.Value, error) {
	switch typ {
	case typeUint8:
		v, err := readUint8(r)
		return artifact.Uint8(v), err
	case typeInt8:
		v, err := readInt8(r)
		return artifact.Int8(v), err
	case typeUint16:
		v, err := readUint16(r)
		return artifact.Uint16(v), err
	case typeInt16:
		v, err := readInt16(r)
		return artifact.Int16(v), err
	case typeUint32:
		v, err := readUint32(r)
		return artifact.Uint32(v), err
	case typeInt32:
		v, err := readInt32(r)
		return artifact.Int32(v), err
	case typeFloat32:
		v, err := readFloat32(r)
		return artifact.Float32(v), err
	case typeBool:
		v, err := readUint8(r)
		return artifact.Bool(v != 0), err
	case typeString:
		v, err := readString(r)
		return artifact.String(v), err
	case typeArray:
		return readArray(r)
	case typeUint64:
		v, err := readUint64(r)
		return artifact.Uint64(v), err
	case typeInt64:
		v, err := readInt64(r)
		return artifact.Int64(v), err
	case typeFloat64:
		v, err := readFloat64(r)
		return artifact.Float(v), err
	default:
		return artifact.Value{}, fmt.Errorf("%w: unknown metadata type %d", ErrInvalidHeader, typ)
	}
}

func readArray(r io.Reader) (artifact.Value, error) {
	elemType, err := readUint32(r)
	if err != nil {
		return artifact.Value{}, fmt.Errorf("read array element type: %w", err)
	}
	if elemType == typeArray {
		return artifact.Value{}, fmt.Errorf("%w: nested arrays", ErrInvalidHeader)
	}
	count, err := readUint64(r)
	if err != nil {
		return artifact.Value{}, fmt.Errorf("read array length: %w", err)
	}
	if count > maxArrayElements {
		return artifact.Value{}, fmt.Errorf("%w (%d): %d", ErrArrayTooLarge, maxArrayElements, count)
	}
	elems := make([]artifact.Value, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := readValue(r, elemType)
		if err != nil {
			return artifact.Value{}, fmt.Errorf("array element %d: %w", i, err)
		}
		elems = append(elems, v)
	}
	return artifact.Array(elems), nil
}

// readTensorInfo reads one tensor descriptor: name, dimensions, element
// type code and data offset. The offset is only consumed to advance past
// the descriptor; the byte length is computed from the shape and type.
func readTensorInfo(r io.Reader) (artifact.Tensor, error) {
	name, err := readString(r)
	if err != nil {
		return artifact.Tensor{}, fmt.Errorf("read name: %w", err)
	}
	nDims, err := readUint32(r)
	if err != nil {
		return artifact.Tensor{}, fmt.Errorf("read dimension count: %w", err)
	}
	if nDims > maxDimensions {
		return artifact.Tensor{}, fmt.Errorf("%w (%d): %d", ErrDimensionsTooLarge, maxDimensions, nDims)
	}
	shape := make([]uint64, 0, nDims)
	for i := uint32(0); i < nDims; i++ {
		dim, err := readUint64(r)
		if err != nil {
			return artifact.Tensor{}, fmt.Errorf("read dimension %d: %w", i, err)
		}
		shape = append(shape, dim)
	}
	code, err := readUint32(r)
	if err != nil {
		return artifact.Tensor{}, fmt.Errorf("read dtype: %w", err)
	}
	if _, err := readUint64(r); err != nil {
		return artifact.Tensor{}, fmt.Errorf("read offset: %w", err)
	}
	return artifact.Tensor{
		Name:       name,
		Dtype:      dtypeName(code),
		Shape:      shape,
		ByteLength: byteLength(shape, code),
	}, nil
}

func readString(r io.Reader) (string, error) {
	n, err := readUint64(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if n > maxStringLength {
		return "", fmt.Errorf("%w: string length %d exceeds maximum %d", ErrInvalidHeader, n, maxStringLength)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: string is not valid UTF-8", ErrInvalidHeader)
	}
	return string(buf), nil
}

func readUint8(r io.Reader) (uint8, error) {
	var v uint8
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readInt8(r io.Reader) (int8, error) {
	var v int8
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readUint16(r io.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readInt16(r io.Reader) (int16, error) {
	var v int16
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readUint64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readInt64(r io.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readFloat32(r io.Reader) (float32, error) {
	var v float32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readFloat64(r io.Reader) (float64, error) {
	var v float64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
