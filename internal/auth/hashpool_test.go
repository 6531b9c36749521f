package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// blockingHasher tracks how many calls run at once and blocks until released
type blockingHasher struct {
	running  atomic.Int32
	peak     atomic.Int32
	release  chan struct{}
	finished chan struct{}
}

func newBlockingHasher() *blockingHasher {
	return &blockingHasher{release: make(chan struct{}), finished: make(chan struct{}, 16)}
}

func (h *blockingHasher) enter() {
	n := h.running.Add(1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-h.release
	h.running.Add(-1)
	h.finished <- struct{}{}
}

func (h *blockingHasher) Hash(password string) (string, error) {
	h.enter()
	return "digest:" + password, nil
}

func (h *blockingHasher) Verify(password, digest string) bool {
	h.enter()
	return digest == "digest:"+password
}

type recordingRecorder struct {
	NopRecorder
	mu  sync.Mutex
	ops []string
}

func (r *recordingRecorder) ObserveHashDuration(op string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func TestHashPool_BoundsConcurrency(t *testing.T) {
	hasher := newBlockingHasher()
	pool := NewHashPool(hasher, 2, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Hash(context.Background(), "pw")
			assert.NoError(t, err)
		}()
	}

	// Let two jobs start, then release everything one at a time.
	require.Eventually(t, func() bool { return hasher.running.Load() == 2 }, time.Second, time.Millisecond)
	for i := 0; i < 5; i++ {
		hasher.release <- struct{}{}
	}
	wg.Wait()

	assert.Equal(t, int32(2), hasher.peak.Load())
}

func TestHashPool_ContextCancelledWhileWaiting(t *testing.T) {
	hasher := newBlockingHasher()
	pool := NewHashPool(hasher, 1, nil)

	go func() { _, _ = pool.Hash(context.Background(), "first") }()
	require.Eventually(t, func() bool { return hasher.running.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pool.Verify(ctx, "second", "digest:second")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	hasher.release <- struct{}{}
	<-hasher.finished
}

func TestHashPool_AbandonedJobStillCompletes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hasher := newBlockingHasher()
	pool := NewHashPool(hasher, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := pool.Hash(ctx, "pw")
		done <- err
	}()
	require.Eventually(t, func() bool { return hasher.running.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The in-flight job finishes and frees its slot.
	hasher.release <- struct{}{}
	<-hasher.finished

	go func() { hasher.release <- struct{}{} }()
	ok, err := pool.Verify(context.Background(), "pw", "digest:pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPool_RecordsDurations(t *testing.T) {
	rec := &recordingRecorder{}
	pool := NewHashPool(NewArgon2idHasher(fastParams), 0, rec)

	digest, err := pool.Hash(context.Background(), "password123")
	require.NoError(t, err)
	ok, err := pool.Verify(context.Background(), "password123", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"hash", "verify"}, rec.ops)
}
