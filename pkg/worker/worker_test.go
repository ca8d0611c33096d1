package worker_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hbomb79/mediascan/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Worker_RunsUntilNoMoreWork(t *testing.T) {
	var calls atomic.Int32
	w := worker.NewWorker("counter", func(worker.Worker) (bool, error) {
		return calls.Add(1) < 3, nil
	})

	pool := worker.NewWorkerPool()
	require.NoError(t, pool.PushWorker(w))
	require.NoError(t, pool.Start())

	assert.Eventually(t, func() bool { return w.Status() == worker.Sleeping && calls.Load() == 3 }, time.Second, time.Millisecond)

	pool.Close()
	assert.Equal(t, worker.Finished, w.Status())
	assert.Equal(t, int32(3), calls.Load())
}

func Test_Worker_WakeupRunsAgain(t *testing.T) {
	var calls atomic.Int32
	w := worker.NewWorker("sleepy", func(worker.Worker) (bool, error) {
		calls.Add(1)
		return false, errors.New("errors are logged, not fatal")
	})

	pool := worker.NewWorkerPool()
	require.NoError(t, pool.PushWorker(w))
	require.NoError(t, pool.Start())
	assert.Eventually(t, func() bool { return calls.Load() == 1 && w.Status() == worker.Sleeping }, time.Second, time.Millisecond)

	require.NoError(t, pool.WakeupWorkers())
	assert.Eventually(t, func() bool { return calls.Load() == 2 && w.Status() == worker.Sleeping }, time.Second, time.Millisecond)

	pool.Close()
}

func Test_Worker_WakeupsWhileBusyAreCoalesced(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 8)
	var calls atomic.Int32
	w := worker.NewWorker("busy", func(worker.Worker) (bool, error) {
		if calls.Add(1) == 1 {
			started <- struct{}{}
			<-release
		}
		return false, nil
	})

	pool := worker.NewWorkerPool()
	require.NoError(t, pool.PushWorker(w))
	require.NoError(t, pool.Start())

	<-started
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.WakeupWorkers())
	}
	close(release)

	assert.Eventually(t, func() bool { return calls.Load() == 2 && w.Status() == worker.Sleeping }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load(), "pending wakeups should collapse in to a single follow-up run")

	pool.Close()
}

func Test_WorkerPool_Lifecycle(t *testing.T) {
	pool := worker.NewWorkerPool()
	assert.Error(t, pool.WakeupWorkers(), "cannot wake an unstarted pool")

	require.NoError(t, pool.PushWorker(worker.NewWorker("noop", func(worker.Worker) (bool, error) { return false, nil })))
	require.NoError(t, pool.Start())
	assert.Error(t, pool.Start())
	assert.Error(t, pool.PushWorker(worker.NewWorker("late", nil)))

	pool.Close()
	pool.Close()
}
