package worker

import (
	"errors"
	"runtime"
	"time"

	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

type WorkerConfig struct {
	// URI of the dispatcher service.
	DispatcherUri string `mapstructure:"dispatcher_uri"`

	// Shared secret used to authenticate with the dispatcher.
	Secret string `mapstructure:"secret"`

	// Thread count for the worker.
	ThreadCount int `mapstructure:"threads"`

	// Delay between connection attempts.
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`

	// Subprocess pool configuration.
	Pool PoolConfig `mapstructure:"pool"`
}

func (c *WorkerConfig) SetDefaults() {
	if c.ThreadCount == 0 {
		c.ThreadCount = runtime.NumCPU()
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = time.Second
	}
	if c.Pool.IdleProcesses <= 0 {
		c.Pool.IdleProcesses = c.ThreadCount
	}
	c.Pool.SetDefaults()
}

// Checks if the worker configuration is valid.
func (c *WorkerConfig) Validate() error {
	// Validate the dispatcher URI.
	if c.DispatcherUri == "" {
		return errors.New("A dispatcher URI is required")
	}

	// Validate the dispatcher URI is a valid endpoint.
	if _, err := utils.ParseEndpoint(c.DispatcherUri, utils.DefaultProtocolPort); err != nil {
		return errors.New("The dispatcher URI is not a valid URI")
	}

	// Validate the thread count.
	if c.ThreadCount <= 0 {
		return errors.New("The thread count must be greater than zero")
	}
	if c.ThreadCount > runtime.NumCPU() {
		return errors.New("The thread count must be less than or equal to the number of CPUs")
	}

	return nil
}

func (c *WorkerConfig) Log() {
	log.Info("Worker configuration:")
	log.Infof("  dispatcher_uri = %s", c.DispatcherUri)
	log.Infof("  thread_count = %v", c.ThreadCount)
	log.Infof("  reconnect_delay = %v", c.ReconnectDelay)
	c.Pool.Log()
}
