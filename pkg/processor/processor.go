package processor

import (
	"context"
	"io"
	"os"

	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/handshake"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/task"
	"github.com/srand/multinode/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// Maximum number of outstanding requests of Map and Repeat.
const DefaultConcurrency = 1000

// Submits function calls under one configuration.
type Processor struct {
	configurationId utils.Digest
	dispatcher      dispatcher.Dispatcher
	closer          io.Closer

	// Destinations of the output captured while tasks run.
	// Nil discards the output.
	Stdout io.Writer
	Stderr io.Writer

	// Bound on outstanding requests of Map and Repeat.
	Concurrency int
}

// Creates a processor for a configuration that is registered with the dispatcher's library.
func New(configurationId utils.Digest, d dispatcher.Dispatcher) *Processor {
	return &Processor{
		configurationId: configurationId,
		dispatcher:      d,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		Concurrency:     DefaultConcurrency,
	}
}

// Connects to a dispatcher service, registers the configuration
// in its library and returns a processor for it.
// The processor must be closed to end the connection.
func Connect(ctx context.Context, uri string, secret []byte, conf *configuration.Configuration) (*Processor, error) {
	session, err := handshake.Dial(ctx, uri, secret)
	if err != nil {
		return nil, err
	}

	if err := session.Library.Add(conf); err != nil {
		session.Close()
		return nil, err
	}

	log.Debugf("Configuration %s (%s) registered", conf.Name, conf.Hash())

	p := New(conf.Hash(), session.Dispatcher)
	p.closer = session
	return p, nil
}

// A submitted request.
type Pending struct {
	future    *utils.Future[[]byte]
	processor *Processor
}

// Submits a call of a registered function.
func (p *Processor) Request(function string, args ...interface{}) (*Pending, error) {
	call, err := task.NewCall(function, args...)
	if err != nil {
		return nil, err
	}

	future, err := p.dispatcher.Submit(p.configurationId, call)
	if err != nil {
		return nil, err
	}

	return &Pending{future: future, processor: p}, nil
}

// Waits for the result and decodes the returned value into v, unless v is nil.
// Output captured during the call is written to the processor's writers.
// A failed call returns a *task.Error.
func (r *Pending) Wait(ctx context.Context, v interface{}) error {
	data, err := r.future.Wait(ctx)
	if err != nil {
		return err
	}
	return task.Evaluate(data, v, r.processor.Stdout, r.processor.Stderr)
}

// Closes the connection of a processor created by Connect.
func (p *Processor) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Calls a function once per argument list, in parallel.
// Results are returned in the order of the argument lists.
// The first failure cancels the waiting for remaining results.
func Map[T any](ctx context.Context, p *Processor, function string, argLists [][]interface{}) ([]T, error) {
	results := make([]T, len(argLists))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Concurrency, 1))

	for i, args := range argLists {
		g.Go(func() error {
			pending, err := p.Request(function, args...)
			if err != nil {
				return err
			}
			return pending.Wait(ctx, &results[i])
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Calls a function with the same arguments a number of times, in parallel.
func Repeat[T any](ctx context.Context, p *Processor, times int, function string, args ...interface{}) ([]T, error) {
	argLists := make([][]interface{}, times)
	for i := range argLists {
		argLists[i] = args
	}
	return Map[T](ctx, p, function, argLists)
}
