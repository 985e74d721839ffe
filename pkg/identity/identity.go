// Package identity computes structural hashes of artifacts. The hash is a
// content-addressed identity for a model file's structure: two files with
// identical tensor descriptors and metadata hash identically regardless of
// byte-level layout, key order or which machine ran the computation.
package identity

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/weightscope/weightscope/pkg/artifact"
)

// Hash computes the structural digest of an artifact.
//
// The artifact is serialized to its canonical JSON form and digested with
// SHA-256. Determinism rests on two properties of that serialization:
// map keys (metadata and tensors) are emitted in sorted order, and every
// metadata value is emitted as its canonical token, which encodes floats
// by bit pattern rather than by formatting. Nothing in the input depends
// on memory addresses, wall-clock time or randomness, so repeated runs on
// the same artifact always produce the same digest.
func Hash(a *artifact.Artifact) (digest.Digest, error) {
	canonical, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("canonical encoding: %w", err)
	}
	return digest.FromBytes(canonical), nil
}

// HashHex returns the structural digest as lowercase hexadecimal without
// the algorithm prefix.
func HashHex(a *artifact.Artifact) (string, error) {
	d, err := Hash(a)
	if err != nil {
		return "", err
	}
	return d.Encoded(), nil
}
