package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/srand/multinode/pkg/handshake"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

// Serves a subprocess pool to a remote dispatcher.
type worker struct {
	config *WorkerConfig
}

func NewWorker(config *WorkerConfig) *worker {
	return &worker{
		config: config,
	}
}

// Connects to the dispatcher and executes its tasks until ctx is cancelled.
// Lost connections are reestablished.
func (w *worker) Run(ctx context.Context) {
	log.Info("Starting")

	for {
		if err := w.run(ctx); err != nil && ctx.Err() == nil {
			log.DebugError(err)

			select {
			case <-time.After(w.config.ReconnectDelay):
			case <-ctx.Done():
			}
		}

		if ctx.Err() != nil {
			break
		}
	}

	log.Info("Terminating")
}

func (w *worker) run(ctx context.Context) error {
	session, err := handshake.Dial(ctx, w.config.DispatcherUri, []byte(w.config.Secret))
	if err != nil {
		return err
	}
	defer session.Close()

	log.Info("Connected to dispatcher")

	pool := NewPool(session.Library, &w.config.Pool)
	defer pool.Close()

	if err := session.Dispatcher.AddWorker(pool, w.config.ThreadCount); err != nil {
		return err
	}

	select {
	case <-session.Done():
		log.Info("Disconnected from dispatcher")
		return fmt.Errorf("%w: dispatcher closed the connection", utils.ErrConnectionLost)
	case <-ctx.Done():
		return nil
	}
}
