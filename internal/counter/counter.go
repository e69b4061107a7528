package counter

import (
	"context"

	"github.com/pbaille/portfolio/internal/domain"
)

// Incrementer is the store capability the counter needs
type Incrementer interface {
	Increment(ctx context.Context, counterID string) (int64, error)
}

// Counter counts page visits. Every call counts; visitors are not deduplicated.
type Counter struct {
	store Incrementer
}

// New creates a Counter backed by s
func New(s Incrementer) *Counter {
	return &Counter{store: s}
}

// Bump increments the global counter and returns the new value
func (c *Counter) Bump(ctx context.Context) (int64, error) {
	return c.store.Increment(ctx, domain.GlobalCounter)
}
