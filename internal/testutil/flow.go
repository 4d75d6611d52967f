package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SequenceIDGenerator returns reproducible UUIDs derived from a seed and a
// counter. Two generators with the same seed produce the same sequence, so
// stored build IDs are stable across test runs.
//
// Thread-safety: Generate is safe for concurrent use.
type SequenceIDGenerator struct {
	mu   sync.Mutex
	seed string
	next int
}

// NewSequenceIDGenerator returns a generator for seed. An empty seed uses
// "test-build".
func NewSequenceIDGenerator(seed string) *SequenceIDGenerator {
	if seed == "" {
		seed = "test-build"
	}
	return &SequenceIDGenerator{seed: seed}
}

// Generate returns the next ID.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", g.seed, g.next))).String()
}
