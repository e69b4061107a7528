package counter

import (
	"context"
	"errors"
	"testing"

	"github.com/pbaille/portfolio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCounter struct {
	counts map[string]int64
	err    error
}

func (m *memCounter) Increment(_ context.Context, id string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[id]++
	return m.counts[id], nil
}

func TestBumpCountsEveryCall(t *testing.T) {
	m := &memCounter{counts: map[string]int64{}}
	c := New(m)

	for want := int64(1); want <= 4; want++ {
		got, err := c.Bump(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.EqualValues(t, 4, m.counts[domain.GlobalCounter])
}

func TestBumpPropagatesStoreError(t *testing.T) {
	boom := errors.New("disk full")
	c := New(&memCounter{err: boom})

	_, err := c.Bump(context.Background())
	assert.ErrorIs(t, err, boom)
}
