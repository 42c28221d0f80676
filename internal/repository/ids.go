package repository

import (
	"fmt"
	"sync"

	"github.com/atinyakov/rccdash/internal/clock"
)

const idSpace = 1_000_000

// IDGenerator issues ids of the form <prefix><6 digits>. The digits start
// from the last six digits of the clock's milliseconds and never repeat
// within a process or collide with an id reported as taken.
type IDGenerator struct {
	mu     sync.Mutex
	clock  clock.Clock
	prefix string
	last   int64
	issued bool
}

// NewIDGenerator returns a generator for prefix (e.g. "M-").
func NewIDGenerator(clk clock.Clock, prefix string) *IDGenerator {
	return &IDGenerator{clock: clk, prefix: prefix}
}

// Next returns a fresh id. taken may be nil.
func (g *IDGenerator) Next(taken func(id string) bool) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.clock.Now().UnixMilli() % idSpace
	if g.issued && n <= g.last {
		n = (g.last + 1) % idSpace
	}
	id := g.format(n)
	for i := 0; taken != nil && taken(id) && i < idSpace; i++ {
		n = (n + 1) % idSpace
		id = g.format(n)
	}
	g.last, g.issued = n, true
	return id
}

func (g *IDGenerator) format(n int64) string {
	return fmt.Sprintf("%s%06d", g.prefix, n)
}
