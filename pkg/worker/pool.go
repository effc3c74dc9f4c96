package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/task"
	"github.com/srand/multinode/pkg/utils"
)

type PoolConfig struct {
	// Command line of the worker subprocess.
	Command []string `mapstructure:"command"`

	// Number of idle subprocesses kept loaded with a configuration.
	IdleProcesses int `mapstructure:"idle_processes"`

	// Additional environment variables of the subprocess.
	Env []string `mapstructure:"env"`
}

func (c *PoolConfig) SetDefaults() {
	if len(c.Command) == 0 {
		executable, err := os.Executable()
		if err != nil {
			executable = os.Args[0]
		}
		c.Command = []string{executable, "subtask"}
	}
	if c.IdleProcesses <= 0 {
		c.IdleProcesses = 1
	}
}

func (c *PoolConfig) Log() {
	log.Infof("  pool_command = %v", c.Command)
	log.Infof("  pool_idle_processes = %d", c.IdleProcesses)
}

// Executes tasks in subprocesses.
//
// Each subprocess is bound to one configuration. Idle subprocesses are
// cached and reused by tasks of the same configuration. When the cache is
// full, the oldest idle subprocess is told to quit.
type Pool struct {
	sync.Mutex

	library configuration.Library
	config  PoolConfig
	info    dispatcher.WorkerInfo

	// Idle processes, oldest first.
	idle   []*process
	closed bool

	// Number of live processes.
	processes int64
}

func NewPool(library configuration.Library, config *PoolConfig) *Pool {
	cfg := PoolConfig{}
	if config != nil {
		cfg = *config
	}
	cfg.SetDefaults()

	return &Pool{
		library: library,
		config:  cfg,
		info:    dispatcher.NewLocalWorkerInfo(),
	}
}

func (p *Pool) Info() dispatcher.WorkerInfo {
	info := p.info
	info.Processes = int(atomic.LoadInt64(&p.processes))
	return info
}

// Execute a task under a configuration and return its encoded result.
//
// Failures to load the configuration and subprocess crashes are reported
// as encoded failure results. Errors are returned only if the configuration
// library connection is lost or ctx is cancelled.
func (p *Pool) Execute(ctx context.Context, configurationId utils.Digest, data []byte) ([]byte, error) {
	proc, failure, err := p.acquire(configurationId)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}

	stop := context.AfterFunc(ctx, proc.kill)
	result, err := proc.execute(data)
	killed := !stop()

	if err == nil && killed {
		p.discard(proc)
		return result, nil
	}

	if err != nil {
		p.discard(proc)

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrConnectionLost, ctx.Err())
		}

		log.Debug("Worker process terminated during task:", err)
		return task.EncodeFailure(&task.Error{
			Kind:    task.ProcessError,
			Message: fmt.Sprintf("worker process terminated unexpectedly: %v", proc.waitErr),
		}, nil, nil), nil
	}

	p.release(proc)
	return result, nil
}

// Returns an idle process loaded with the configuration, or starts a new one.
// The second return value is an encoded failure result if the configuration
// could not be loaded.
func (p *Pool) acquire(configurationId utils.Digest) (*process, []byte, error) {
	var evicted []*process

	p.Lock()
	for i, proc := range p.idle {
		if proc.configurationId == configurationId {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			p.Unlock()
			return proc, nil, nil
		}
	}
	for len(p.idle) > 0 && len(p.idle) >= p.config.IdleProcesses {
		evicted = append(evicted, p.idle[0])
		p.idle = p.idle[1:]
	}
	p.Unlock()

	for _, proc := range evicted {
		p.quit(proc)
	}

	return p.spawn(configurationId)
}

func (p *Pool) spawn(configurationId utils.Digest) (*process, []byte, error) {
	failure := func(err error) []byte {
		return task.EncodeFailure(task.NewError(task.ConfigurationError, err), nil, nil)
	}

	config, err := p.library.Get(configurationId)
	if err != nil {
		if errors.Is(err, utils.ErrConnectionLost) {
			return nil, nil, err
		}
		log.Debugf("Configuration %s unavailable: %v", configurationId, err)
		return nil, failure(err), nil
	}

	proc, err := startProcess(&p.config, configurationId)
	if err != nil {
		return nil, failure(err), nil
	}
	atomic.AddInt64(&p.processes, 1)

	result, err := proc.load(config)
	if err != nil {
		p.discard(proc)
		return nil, failure(fmt.Errorf("worker process failed to load configuration: %v", err)), nil
	}
	if result != nil {
		p.discard(proc)
		return nil, result, nil
	}

	log.Debugf("Worker process %d loaded configuration %s (%s)", proc.cmd.GetPid(), config.Name, configurationId)
	return proc, nil, nil
}

// Returns a process to the idle cache.
func (p *Pool) release(proc *process) {
	var evicted []*process

	p.Lock()
	if p.closed {
		evicted = append(evicted, proc)
	} else {
		p.idle = append(p.idle, proc)
		for len(p.idle) > p.config.IdleProcesses {
			evicted = append(evicted, p.idle[0])
			p.idle = p.idle[1:]
		}
	}
	p.Unlock()

	for _, proc := range evicted {
		p.quit(proc)
	}
}

func (p *Pool) quit(proc *process) {
	proc.quit()
	atomic.AddInt64(&p.processes, -1)
}

func (p *Pool) discard(proc *process) {
	proc.kill()
	proc.wait()
	atomic.AddInt64(&p.processes, -1)
}

// Quits all idle processes. Processes executing tasks quit when done.
func (p *Pool) Close() error {
	p.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.Unlock()

	for _, proc := range idle {
		p.quit(proc)
	}
	return nil
}
