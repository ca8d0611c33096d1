package worker

import (
	"sync/atomic"

	"github.com/hbomb79/mediascan/pkg/logger"
)

var workerLogger = logger.Get("Worker")

type WorkerWakeupChan chan int
type WorkerStatus int32

// WorkFunc performs a single unit of work for a worker. The boolean
// returned indicates whether more work is immediately available; if false,
// the worker sleeps until it is woken.
type WorkFunc func(Worker) (bool, error)

const (
	Sleeping WorkerStatus = iota
	Working
	Finished
)

type Worker interface {
	Start()
	Status() WorkerStatus
	WakeupChan() WorkerWakeupChan
	Label() string
	Sleep() bool
	Close()
}

type taskWorker struct {
	label         string
	work          WorkFunc
	wakeupChan    WorkerWakeupChan
	currentStatus atomic.Int32
}

// NewWorker creates a worker which repeatedly calls the work function
// provided until it reports no further work, at which point the worker
// sleeps. Wakeups which arrive while the worker is busy are coalesced
// in to a single pending wakeup.
func NewWorker(label string, work WorkFunc) *taskWorker {
	w := &taskWorker{
		label:      label,
		work:       work,
		wakeupChan: make(WorkerWakeupChan, 1),
	}
	w.setStatus(Sleeping)

	return w
}

// Start runs the worker on the calling goroutine until its wakeup
// channel is closed.
func (worker *taskWorker) Start() {
	workerLogger.Emit(logger.NEW, "Starting worker with label %v\n", worker.label)
	for {
		worker.setStatus(Working)
		more, err := worker.work(worker)
		if err != nil {
			workerLogger.Emit(logger.ERROR, "Worker with label %v has reported an error(%T): %v\n", worker.label, err, err.Error())
		}

		if more {
			continue
		}
		if !worker.Sleep() {
			break
		}
	}

	worker.setStatus(Finished)
	workerLogger.Emit(logger.STOP, "Worker with label %v has stopped\n", worker.label)
}

// Status returns the current status of this worker
func (worker *taskWorker) Status() WorkerStatus {
	return WorkerStatus(worker.currentStatus.Load())
}

func (worker *taskWorker) WakeupChan() WorkerWakeupChan {
	return worker.wakeupChan
}

// Close closes the Worker by closing the WakeChan.
// Note that this does not interupt currently running
// work.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

// Label returns the label for this worker
func (worker *taskWorker) Label() string {
	return worker.label
}

// Sleep puts a worker to sleep until it's wakeupChan is
// signalled from another goroutine. Returns a boolean that
// is 'false' if the wakeup channel was closed - indicating
// the worker should quit.
func (worker *taskWorker) Sleep() (isAlive bool) {
	worker.setStatus(Sleeping)

	if _, isAlive = <-worker.wakeupChan; isAlive {
		worker.setStatus(Working)
	} else {
		workerLogger.Emit(logger.STOP, "Wakeup channel for worker '%v' has been closed - worker is exiting\n", worker.label)
		worker.setStatus(Finished)
	}

	return isAlive
}

func (worker *taskWorker) setStatus(status WorkerStatus) {
	worker.currentStatus.Store(int32(status))
}
