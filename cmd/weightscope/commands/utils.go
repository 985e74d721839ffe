package commands

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/weightscope/weightscope/pkg/artifact"
	"github.com/weightscope/weightscope/pkg/format"
	"github.com/weightscope/weightscope/pkg/identity"
)

// ErrDifferences signals that diff found structural changes when
// --exit-code was requested. main maps it to a distinct exit status.
var ErrDifferences = errors.New("files differ")

// isExitSentinel reports whether err only carries an exit status and
// should not be printed as an error message.
func isExitSentinel(err error) bool {
	return errors.Is(err, ErrDifferences)
}

// loadArtifact parses the structural header of the weight file at path.
func loadArtifact(path string) (*artifact.Artifact, error) {
	a, err := format.ParseFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return a, nil
}

// loadIdentified parses path and computes its structural hash.
func loadIdentified(path string) (*artifact.Artifact, string, error) {
	a, err := loadArtifact(path)
	if err != nil {
		return nil, "", err
	}
	hash, err := identity.HashHex(a)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to hash %s", path)
	}
	return a, hash, nil
}

// formatVersion renders an artifact version for display, "N/A" when the
// format carries no version.
func formatVersion(a *artifact.Artifact) string {
	if a.Version == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *a.Version)
}

// formatBytes renders a byte length for display. Zero means the size is
// unknown (e.g. exotic quantized dtypes), shown as "-".
func formatBytes(n uint64) string {
	if n == 0 {
		return "-"
	}
	return units.HumanSize(float64(n))
}

// formatShape renders a tensor shape like [4096, 32000].
func formatShape(shape []uint64) string {
	s := "["
	for i, d := range shape {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d", d)
	}
	return s + "]"
}
