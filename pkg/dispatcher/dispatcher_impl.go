package dispatcher

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

// A task waiting for a worker slot.
type pendingTask struct {
	configurationId utils.Digest
	task            []byte
	future          *utils.Future[[]byte]
}

// Registry entry of a worker.
// Invariant: slots == number of idle entries of the worker + active.
type workerEntry struct {
	worker Worker
	id     string
	slots  int
	active int
}

// A first in, first out dispatcher.
// Pending tasks are paired with idle worker slots in submission order.
type dispatcher struct {
	sync.Mutex

	// Channel used to trigger rescheduling
	rescheduleChan chan bool

	// Map of worker handle to registry entry
	workers map[Worker]*workerEntry

	// Idle worker slots, one element per slot
	idle *list.List

	// Tasks waiting for a worker slot
	pending *list.List

	// Set when Run has returned
	stopped bool

	// Statistics
	numSubmittedTasks   int64
	numCompletedTasks   int64
	numFailedTasks      int64
	numRescheduledTasks int64
	numRunningTasks     int64
}

// Create a new dispatcher. Tasks are not assigned until Run is called.
func NewDispatcher() *dispatcher {
	return &dispatcher{
		rescheduleChan: make(chan bool, 1),
		workers:        map[Worker]*workerEntry{},
		idle:           list.New(),
		pending:        list.New(),
	}
}

// Register a worker with a number of slots.
// Registering the same worker again adds to its slots.
func (d *dispatcher) AddWorker(worker Worker, slots int) error {
	if slots <= 0 {
		return fmt.Errorf("%w: worker must have at least one slot", utils.ErrBadRequest)
	}

	d.Lock()
	defer d.Unlock()

	if d.stopped {
		return utils.ErrShutdown
	}

	entry, ok := d.workers[worker]
	if !ok {
		entry = &workerEntry{worker: worker, id: uuid.NewString()}
		d.workers[worker] = entry
		log.Infof("new - worker - id: %s, slots: %d, %s", entry.id, slots, worker.Info())
	} else {
		log.Debugf("add - worker - id: %s, slots: %d", entry.id, slots)
	}

	entry.slots += slots
	for i := 0; i < slots; i++ {
		d.idle.PushBack(entry)
	}

	d.Reschedule()
	return nil
}

// Submit a task. The returned future is resolved once a worker has
// produced a result, after any number of retries on lost workers.
func (d *dispatcher) Submit(configurationId utils.Digest, task []byte) (*utils.Future[[]byte], error) {
	d.Lock()
	defer d.Unlock()

	if d.stopped {
		return utils.RejectedFuture[[]byte](utils.ErrShutdown), nil
	}

	future := utils.NewFuture[[]byte]()
	d.pending.PushBack(&pendingTask{
		configurationId: configurationId,
		task:            task,
		future:          future,
	})

	atomic.AddInt64(&d.numSubmittedTasks, 1)
	log.Tracef("new - task - configuration: %s, size: %d", configurationId, len(task))

	d.Reschedule()
	return future, nil
}

// Force dispatcher to re-evaluate its queues.
func (d *dispatcher) Reschedule() {
	select {
	case d.rescheduleChan <- true:
	default:
	}
}

// Run the dispatcher until the context is cancelled.
// On return, all waiting tasks are rejected with utils.ErrShutdown.
func (d *dispatcher) Run(ctx context.Context) {
	// Create a timer to trigger rescheduling in case of no activity
	tickerPeriod := time.Minute
	ticker := time.NewTicker(tickerPeriod)
	defer ticker.Stop()

	log.Debug("Dispatcher starting")
	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			log.Debug("Dispatcher stopped")
			return

		case <-ticker.C:
			d.Reschedule()

		case <-d.rescheduleChan:
			ticker.Reset(tickerPeriod)
			d.selectTaskAndWorker(ctx)
		}
	}
}

// Reports whether Run has returned.
func (d *dispatcher) Stopped() bool {
	d.Lock()
	defer d.Unlock()
	return d.stopped
}

func (d *dispatcher) shutdown() {
	d.Lock()
	d.stopped = true
	pending := d.pending
	d.pending = list.New()
	d.Unlock()

	for e := pending.Front(); e != nil; e = e.Next() {
		atomic.AddInt64(&d.numFailedTasks, 1)
		e.Value.(*pendingTask).future.Reject(utils.ErrShutdown)
	}
}

// Pairs idle slots with pending tasks while both are available.
func (d *dispatcher) selectTaskAndWorker(ctx context.Context) {
	d.Lock()
	defer d.Unlock()

	for d.idle.Len() > 0 && d.pending.Len() > 0 {
		entry := d.idle.Remove(d.idle.Front()).(*workerEntry)
		task := d.pending.Remove(d.pending.Front()).(*pendingTask)

		entry.active++
		atomic.AddInt64(&d.numRunningTasks, 1)

		log.Tracef("exe - task - worker: %s, configuration: %s", entry.id, task.configurationId)

		go func() {
			result, err := entry.worker.Execute(ctx, task.configurationId, task.task)
			d.complete(entry, task, result, err)
		}()
	}
}

func (d *dispatcher) complete(entry *workerEntry, task *pendingTask, result []byte, err error) {
	atomic.AddInt64(&d.numRunningTasks, -1)

	d.Lock()
	entry.active--

	switch {
	case err == nil:
		d.idle.PushBack(entry)
		d.Unlock()

		atomic.AddInt64(&d.numCompletedTasks, 1)
		task.future.Resolve(result)

	case errors.Is(err, utils.ErrConnectionLost):
		entry.slots--
		if entry.slots <= 0 {
			delete(d.workers, entry.worker)
			log.Infof("del - worker - id: %s", entry.id)
		} else {
			log.Debugf("nok - worker - id: %s, remaining slots: %d", entry.id, entry.slots)
		}

		if d.stopped {
			d.Unlock()
			atomic.AddInt64(&d.numFailedTasks, 1)
			task.future.Reject(utils.ErrShutdown)
			return
		}

		d.pending.PushBack(task)
		d.Unlock()

		atomic.AddInt64(&d.numRescheduledTasks, 1)
		log.Debugf("Task rescheduled after lost worker: %v", err)

	default:
		d.idle.PushBack(entry)
		d.Unlock()

		atomic.AddInt64(&d.numFailedTasks, 1)
		log.Debugf("Task failed on worker %s: %v", entry.id, err)
		task.future.Reject(err)
	}

	d.Reschedule()
}

// Get dispatcher statistics
func (d *dispatcher) Statistics() *Statistics {
	d.Lock()
	defer d.Unlock()

	stats := &Statistics{
		Workers:          make([]WorkerStatistics, 0, len(d.workers)),
		WaitingTasks:     int64(d.pending.Len()),
		RunningTasks:     atomic.LoadInt64(&d.numRunningTasks),
		SubmittedTasks:   atomic.LoadInt64(&d.numSubmittedTasks),
		CompletedTasks:   atomic.LoadInt64(&d.numCompletedTasks),
		FailedTasks:      atomic.LoadInt64(&d.numFailedTasks),
		RescheduledTasks: atomic.LoadInt64(&d.numRescheduledTasks),
	}

	for _, entry := range d.workers {
		info := entry.worker.Info()
		info.Id = entry.id
		stats.Workers = append(stats.Workers, WorkerStatistics{
			WorkerInfo: info,
			Slots:      entry.slots,
			Active:     entry.active,
		})
	}

	sort.Slice(stats.Workers, func(i, j int) bool {
		return stats.Workers[i].Id < stats.Workers[j].Id
	})

	return stats
}
