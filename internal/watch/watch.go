// Package watch re-runs a batch whenever the media under a directory
// changes, rewriting the report after each run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hbomb79/mediascan/internal/batch"
	"github.com/hbomb79/mediascan/internal/discover"
	"github.com/hbomb79/mediascan/internal/event"
	"github.com/hbomb79/mediascan/pkg/logger"
	"github.com/hbomb79/mediascan/pkg/worker"
	"github.com/rjeczalik/notify"
)

var log = logger.Get("Watch")

const DefaultDebounce = 2 * time.Second

type (
	batchRunner interface {
		Run(context.Context, string) (*batch.Result, error)
	}

	// ReportFunc is called with the result of every batch run which
	// was not cancelled.
	ReportFunc func(*batch.Result) error

	Config struct {
		Root     string
		Debounce time.Duration
	}

	// Service watches a directory tree, and runs a batch over the tree
	// each time a change to a media file is observed. Changes are
	// debounced, and batches are run one at a time on a background
	// worker; changes observed during a run schedule a single follow-up
	// run.
	Service struct {
		sync.Mutex
		config        Config
		runner        batchRunner
		discoverer    *discover.Discoverer
		report        ReportFunc
		events        event.EventDispatcher
		workerPool    *worker.WorkerPool
		debounceTimer *time.Timer
		ctx           context.Context
	}
)

// New creates a watch service for the root configured. The root must be
// an existing directory.
func New(config Config, runner batchRunner, discoverer *discover.Discoverer, report ReportFunc, events event.EventDispatcher) (*Service, error) {
	if err := discover.ValidateRoot(config.Root); err != nil {
		return nil, err
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root %s: %w", config.Root, err)
	}
	config.Root = root

	service := &Service{
		config:     config,
		runner:     runner,
		discoverer: discoverer,
		report:     report,
		events:     events,
		workerPool: worker.NewWorkerPool(),
		ctx:        context.Background(),
	}
	service.workerPool.PushWorker(worker.NewWorker("watch-worker-0", service.performRun))

	return service, nil
}

// Run performs an initial batch and then listens for changes to the file
// system beneath the root until the context is cancelled. Any batch in
// progress when the context is cancelled stops at the next file boundary,
// and its result is not reported.
func (service *Service) Run(ctx context.Context) error {
	fsNotifyChannel := make(chan notify.EventInfo, 64)
	if err := notify.Watch(filepath.Join(service.config.Root, "..."), fsNotifyChannel, notify.Create, notify.Remove, notify.Rename, notify.Write); err != nil {
		return fmt.Errorf("failed to watch %s: %w", service.config.Root, err)
	}
	defer notify.Stop(fsNotifyChannel)

	service.Lock()
	service.ctx = ctx
	service.Unlock()

	if err := service.workerPool.Start(); err != nil {
		return err
	}
	defer service.workerPool.Close()
	defer service.clearDebounceTimer()

	log.Emit(logger.INFO, "Watching %s for changes\n", service.config.Root)
	for {
		select {
		case ev := <-fsNotifyChannel:
			if service.isRelevant(ev) {
				log.Emit(logger.DEBUG, "Observed %s for %s\n", ev.Event(), ev.Path())
				service.Trigger(ev.Path())
			}
		case <-ctx.Done():
			log.Emit(logger.STOP, "Stopped watching %s\n", service.config.Root)
			return nil
		}
	}
}

// Trigger schedules a batch run once the debounce period has elapsed
// without any further triggers. The reason is included in the
// WATCH_TRIGGERED event dispatched when the run is requested.
func (service *Service) Trigger(reason string) {
	service.Lock()
	defer service.Unlock()

	// A timer which has already fired is replaced rather than re-armed.
	if service.debounceTimer != nil && service.debounceTimer.Stop() {
		service.debounceTimer.Reset(service.config.Debounce)
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(service.config.Debounce, func() {
		service.Lock()
		if service.debounceTimer == timer {
			service.debounceTimer = nil
		}
		service.Unlock()

		if service.events != nil {
			service.events.Dispatch(event.WATCH_TRIGGERED, reason)
		}
		if err := service.workerPool.WakeupWorkers(); err != nil {
			log.Emit(logger.WARNING, "Unable to schedule batch run: %v\n", err)
		}
	})
	service.debounceTimer = timer
}

// performRun is the worker function for the service. It runs a single batch
// over the root and reports the result.
func (service *Service) performRun(w worker.Worker) (bool, error) {
	service.Lock()
	ctx := service.ctx
	service.Unlock()

	result, err := service.runner.Run(ctx, service.config.Root)
	if err != nil {
		if errors.Is(err, discover.ErrEmptyResultSet) {
			log.Emit(logger.WARNING, "No media files found in %s, waiting for changes\n", service.config.Root)
			return false, nil
		}

		return false, fmt.Errorf("batch over %s failed: %w", service.config.Root, err)
	}
	if result.Cancelled() {
		return false, nil
	}

	if err := service.report(result); err != nil {
		return false, fmt.Errorf("failed to write report for batch %s: %w", result.ID, err)
	}

	return false, nil
}

// isRelevant returns true if the event could change the result of a batch:
// any change to a file the discoverer would report, the creation of a
// directory, or the removal/rename of something which may be a directory
// containing such files. Files written in to a new directory may land before
// the directory itself is watched, so its creation alone triggers a run.
func (service *Service) isRelevant(ev notify.EventInfo) bool {
	if ev.Event() == notify.Create {
		if info, err := os.Stat(ev.Path()); err == nil && info.IsDir() {
			return true
		}
	}

	name := filepath.Base(ev.Path())
	if strings.HasPrefix(name, ".") {
		return false
	}
	if service.discoverer.Allows(name) {
		return true
	}

	switch ev.Event() {
	case notify.Remove, notify.Rename:
		return filepath.Ext(name) == ""
	}

	return false
}

func (service *Service) clearDebounceTimer() {
	service.Lock()
	defer service.Unlock()

	if service.debounceTimer != nil {
		service.debounceTimer.Stop()
		service.debounceTimer = nil
	}
}
