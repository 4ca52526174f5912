package engine

import (
	"fmt"
	"math"

	"github.com/your-org/occupancy/internal/models"
)

// Matcher decides whether a probe encoding corresponds to one of the
// candidates. Implementations must be pure: no storage access, no
// side effects, deterministic for identical inputs.
type Matcher interface {
	Match(probe models.Encoding, candidates []models.Candidate) (int64, bool, error)
}

// LinearMatcher scans every candidate in order and accepts the first
// whose Euclidean distance to the probe falls below Threshold. The
// first satisfying candidate wins, not the closest one; registries
// are small enough that a brute-force scan is fine, and the interface
// leaves room for an indexed search later.
type LinearMatcher struct {
	// Threshold is the policy constant below which two encodings are
	// considered the same face. Not tunable per call.
	Threshold float64

	// Dimensions is the expected probe length. Zero disables the
	// up-front check; shape is still validated against each candidate.
	Dimensions int
}

func NewLinearMatcher(threshold float64, dimensions int) LinearMatcher {
	return LinearMatcher{Threshold: threshold, Dimensions: dimensions}
}

// Match returns the first matching guest ID in candidate order. An
// empty candidate set is not an error; it simply never matches.
func (m LinearMatcher) Match(probe models.Encoding, candidates []models.Candidate) (int64, bool, error) {
	if err := m.CheckShape(probe); err != nil {
		return 0, false, err
	}

	for _, c := range candidates {
		if len(c.Encoding) != len(probe) {
			return 0, false, fmt.Errorf("%w: probe has %d dimensions, guest %d has %d",
				ErrEncodingShapeMismatch, len(probe), c.GuestID, len(c.Encoding))
		}
		if euclideanDistance(probe, c.Encoding) < m.Threshold {
			return c.GuestID, true, nil
		}
	}
	return 0, false, nil
}

// CheckShape validates the probe before any storage access.
func (m LinearMatcher) CheckShape(probe models.Encoding) error {
	if len(probe) == 0 {
		return fmt.Errorf("%w: empty probe", ErrEncodingShapeMismatch)
	}
	if m.Dimensions > 0 && len(probe) != m.Dimensions {
		return fmt.Errorf("%w: probe has %d dimensions, want %d",
			ErrEncodingShapeMismatch, len(probe), m.Dimensions)
	}
	return nil
}

func euclideanDistance(a, b models.Encoding) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
