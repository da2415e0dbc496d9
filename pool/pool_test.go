package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoReturnsResults(t *testing.T) {
	t.Parallel()

	p := New(4)
	defer p.Close()

	futures := make([]*Future[int], 32)
	for i := range futures {
		futures[i] = Go(p, func() (int, error) { return i * i, nil })
	}
	for i, f := range futures {
		v, err := f.Wait()
		require.NoError(t, err)
		assert.Equal(t, i*i, v)
	}
}

func TestGoPropagatesErrors(t *testing.T) {
	t.Parallel()

	p := New(2)
	defer p.Close()

	boom := errors.New("boom")
	_, err := Go(p, func() ([]byte, error) { return nil, boom }).Wait()
	require.ErrorIs(t, err, boom)
}

func TestGoRecoversPanics(t *testing.T) {
	t.Parallel()

	p := New(1)
	defer p.Close()

	_, err := Go(p, func() (int, error) { panic("bad chunk") }).Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad chunk")

	// The worker survives.
	v, err := Go(p, func() (int, error) { return 7, nil }).Wait()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestSubmitAfterClose(t *testing.T) {
	t.Parallel()

	p := New(2)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	require.ErrorIs(t, p.Submit(func() {}), ErrClosed)
	_, err := Go(p, func() (int, error) { return 1, nil }).Wait()
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseDrainsQueuedTasks(t *testing.T) {
	t.Parallel()

	p := New(1, WithQueue(16))
	var ran atomic.Int32
	for range 16 {
		require.NoError(t, p.Submit(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		}))
	}
	require.NoError(t, p.Close())
	assert.Equal(t, int32(16), ran.Load())
}

func TestSingleWorkerRunsInSubmissionOrder(t *testing.T) {
	t.Parallel()

	p := New(1, WithQueue(64))
	defer p.Close()

	var mu sync.Mutex
	var order []int
	futures := make([]*Future[struct{}], 50)
	for i := range futures {
		futures[i] = Go(p, func() (struct{}, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return struct{}{}, nil
		})
	}
	for _, f := range futures {
		_, err := f.Wait()
		require.NoError(t, err)
	}
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestJoiningTaskDoesNotDeadlockSingleWorker(t *testing.T) {
	t.Parallel()

	p := New(1)
	defer p.Close()

	parts := make([]*Future[int], 4)
	for i := range parts {
		parts[i] = Go(p, func() (int, error) { return i, nil })
	}
	join := Go(p, func() (int, error) {
		sum := 0
		for _, f := range parts {
			v, err := f.Wait()
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sum, err := join.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, sum)
}

func TestAwaitHonoursContext(t *testing.T) {
	t.Parallel()

	p := New(1)
	defer p.Close()

	release := make(chan struct{})
	f := Go(p, func() (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	v, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestResolved(t *testing.T) {
	t.Parallel()

	f := Resolved("done", nil)
	select {
	case <-f.Done():
	default:
		t.Fatal("resolved future is not done")
	}
	v, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestNewDefaultsSize(t *testing.T) {
	t.Parallel()

	p := New(0)
	defer p.Close()
	assert.Positive(t, p.Size())
}
