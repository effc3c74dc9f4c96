package dispatcher

import (
	"context"

	"github.com/srand/multinode/pkg/utils"
)

// Main dispatcher interface.
type Dispatcher interface {
	// Register a worker with the given number of slots.
	// Each slot executes one task at a time.
	AddWorker(worker Worker, slots int) error

	// Submit a task for execution under a configuration.
	// The returned future resolves with the encoded task result.
	Submit(configurationId utils.Digest, task []byte) (*utils.Future[[]byte], error)
}

// A worker executes tasks on behalf of the dispatcher.
type Worker interface {
	// Execute a task and return its encoded result.
	// Fails with utils.ErrConnectionLost if the worker can no longer
	// execute tasks, in which case the task is rescheduled elsewhere.
	Execute(ctx context.Context, configurationId utils.Digest, task []byte) ([]byte, error)

	// Descriptive information about the worker.
	Info() WorkerInfo
}

// Dispatcher statistics
type Statistics struct {
	// Connected workers
	Workers []WorkerStatistics `json:"workers" cbor:"1,keyasint"`

	// Number of tasks waiting for a worker
	WaitingTasks int64 `json:"waiting_tasks" cbor:"2,keyasint"`

	// Number of tasks currently executing
	RunningTasks int64 `json:"running_tasks" cbor:"3,keyasint"`

	// Total number of submitted tasks
	SubmittedTasks int64 `json:"submitted_tasks" cbor:"4,keyasint"`

	// Total number of tasks resolved with a result
	CompletedTasks int64 `json:"completed_tasks" cbor:"5,keyasint"`

	// Total number of tasks rejected with an error
	FailedTasks int64 `json:"failed_tasks" cbor:"6,keyasint"`

	// Total number of tasks rescheduled after a lost worker
	RescheduledTasks int64 `json:"rescheduled_tasks" cbor:"7,keyasint"`
}

type WorkerStatistics struct {
	WorkerInfo `json:"info" cbor:"1,keyasint"`

	// Remaining slots of the worker
	Slots int `json:"slots" cbor:"2,keyasint"`

	// Number of tasks executing on the worker
	Active int `json:"active" cbor:"3,keyasint"`
}
