package dice

import (
	"math/rand"

	"github.com/valyala/fastrand"
)

const sides = 6

// Source produces uniform six-sided die values. Implementations must be
// safe to swap for deterministic ones in tests.
type Source interface {
	// Roll returns n independent values in [1, 6].
	Roll(n int) []int
}

// New returns the default source backed by fastrand.
func New() Source {
	return fastSource{}
}

type fastSource struct{}

func (fastSource) Roll(n int) []int {
	values := make([]int, n)
	for i := range values {
		values[i] = int(fastrand.Uint32n(sides)) + 1
	}
	return values
}

// NewSeeded returns a reproducible source for tests and replays.
func NewSeeded(seed int64) Source {
	return &seededSource{rnd: rand.New(rand.NewSource(seed))}
}

type seededSource struct {
	rnd *rand.Rand
}

func (s *seededSource) Roll(n int) []int {
	values := make([]int, n)
	for i := range values {
		values[i] = s.rnd.Intn(sides) + 1
	}
	return values
}
