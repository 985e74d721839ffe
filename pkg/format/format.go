// Package format wires the per-format parsers behind a single detection
// and dispatch surface. It uses the Strategy pattern: each format
// registers an implementation, and callers ask for one by name or let
// Detect pick it from the file path and leading bytes.
//
// Detection and file opening live here, outside the parsers, so each
// parser stays a pure bytes-to-artifact function.
package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/weightscope/weightscope/pkg/artifact"
)

// Format defines the operations a format implementation provides.
type Format interface {
	// Name returns the format identifier (e.g. "gguf").
	Name() artifact.Format

	// Sniff reports whether the leading bytes of a file look like this
	// format. Formats without a magic signature return false and rely on
	// extension classification.
	Sniff(prefix []byte) bool

	// Parse decodes a file's header from r into an artifact.
	Parse(r io.Reader) (*artifact.Artifact, error)
}

// registry holds all registered format implementations.
var registry = make(map[artifact.Format]Format)

// Register adds a format implementation to the global registry. It is
// called in init() functions by the format implementations.
func Register(f Format) {
	registry[f.Name()] = f
}

// Get returns the format implementation for the given name.
func Get(name artifact.Format) (Format, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", name)
	}
	return f, nil
}

// Detect chooses a format for a file from its path and leading bytes.
// ONNX has no magic signature, so the extension decides first; then magic
// bytes; anything else is treated as safetensors, whose header parse will
// reject non-safetensors content with a precise error.
func Detect(path string, prefix []byte) Format {
	if Classify(path) == FileTypeONNX {
		if f, err := Get(artifact.FormatONNX); err == nil {
			return f
		}
	}
	names := make([]artifact.Format, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if f := registry[name]; f.Sniff(prefix) {
			return f
		}
	}
	f, _ := Get(artifact.FormatSafetensors)
	return f
}

// ParseFile opens a file, detects its format and parses its header. Parse
// errors are returned unwrapped so callers can match on the parser's typed
// errors; path context is the caller's concern.
func ParseFile(path string) (*artifact.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	prefix := make([]byte, 16)
	n, err := io.ReadFull(f, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", path, err)
	}

	return Detect(path, prefix[:n]).Parse(bufio.NewReader(f))
}
