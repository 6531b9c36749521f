package auth

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"
)

// HashPool runs password hashing on a bounded number of goroutines.
// argon2id allocates its full memory cost per call, so unbounded
// concurrency under a login burst would exhaust memory.
//
// A caller whose context ends while waiting gets the context error. A hash
// that has already started runs to completion and its result is dropped.
type HashPool struct {
	hasher   PasswordHasher
	sem      *semaphore.Weighted
	recorder Recorder
}

// NewHashPool creates a pool allowing size concurrent hash operations.
// size <= 0 means runtime.NumCPU().
func NewHashPool(hasher PasswordHasher, size int, recorder Recorder) *HashPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &HashPool{
		hasher:   hasher,
		sem:      semaphore.NewWeighted(int64(size)),
		recorder: recorder,
	}
}

type hashResult struct {
	digest string
	ok     bool
	err    error
}

// Hash hashes password on the pool
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	res, err := p.run(ctx, "hash", func() hashResult {
		digest, err := p.hasher.Hash(password)
		return hashResult{digest: digest, err: err}
	})
	if err != nil {
		return "", err
	}
	return res.digest, res.err
}

// Verify checks password against digest on the pool.
// The error is non-nil only when ctx ended first.
func (p *HashPool) Verify(ctx context.Context, password, digest string) (bool, error) {
	res, err := p.run(ctx, "verify", func() hashResult {
		return hashResult{ok: p.hasher.Verify(password, digest)}
	})
	if err != nil {
		return false, err
	}
	return res.ok, nil
}

func (p *HashPool) run(ctx context.Context, op string, job func() hashResult) (hashResult, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return hashResult{}, err
	}

	done := make(chan hashResult, 1)
	go func() {
		defer p.sem.Release(1)
		start := time.Now()
		res := job()
		p.recorder.ObserveHashDuration(op, time.Since(start))
		done <- res
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	}
}
