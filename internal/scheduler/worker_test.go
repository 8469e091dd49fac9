package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls int32
	err   error
}

func (s *countingSweeper) SweepExpired(_ context.Context) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}

func (s *countingSweeper) count() int32 {
	return atomic.LoadInt32(&s.calls)
}

func TestWorker_SweepsImmediatelyOnStart(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewWorker(sweeper, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool {
		return sweeper.count() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	w.Wait()
}

func TestWorker_SweepsOnInterval(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewWorker(sweeper, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool {
		return sweeper.count() >= 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	w.Wait()
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewWorker(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()
	w.Wait()

	settled := sweeper.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, sweeper.count())
}

func TestWorker_SweepErrorKeepsLoopAlive(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	w := NewWorker(sweeper, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool {
		return sweeper.count() >= 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	w.Wait()
}

func TestNewWorker_DefaultInterval(t *testing.T) {
	w := NewWorker(&countingSweeper{}, 0)
	assert.Equal(t, DefaultSweepInterval, w.interval)
}
