package secret

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

type (
	// Pool limits how many password derivations run at once. Callers
	// waiting for a slot give up when their context is done; once a
	// derivation starts it runs to completion.
	Pool struct {
		hasher *Hasher
		slots  *semaphore.Weighted
	}
)

// NewPool returns a pool running at most size derivations concurrently.
// A size <= 0 means half the available CPUs (at least one).
func NewPool(h *Hasher, size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU() / 2
		if size < 1 {
			size = 1
		}
	}
	if h == nil {
		h = NewHasher()
	}
	return &Pool{
		hasher: h,
		slots:  semaphore.NewWeighted(int64(size)),
	}
}

func (p *Pool) Hasher() *Hasher {
	return p.hasher
}

func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.slots.Release(1)
	return p.hasher.Hash(password)
}

// Verify reports false with a nil error on mismatch; the error is only set
// when ctx ended before a slot was available.
func (p *Pool) Verify(ctx context.Context, encoded, candidate string) (bool, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.slots.Release(1)
	return p.hasher.Verify(encoded, candidate), nil
}
