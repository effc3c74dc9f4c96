package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/task"
	"github.com/srand/multinode/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const subtaskEnv = "MULTINODE_TEST_SUBTASK"

func newTestRegistry() *task.Registry {
	r := task.NewRegistry()
	r.Register("double", func(ctx *task.Context) (interface{}, error) {
		var s string
		if err := ctx.Args(&s); err != nil {
			return nil, err
		}
		return s + s, nil
	})
	r.Register("pid", func(ctx *task.Context) (interface{}, error) {
		return os.Getpid(), nil
	})
	r.Register("read", func(ctx *task.Context) (interface{}, error) {
		var name string
		if err := ctx.Args(&name); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(ctx.Env.Path(name))
		return string(data), err
	})
	r.Register("print", func(ctx *task.Context) (interface{}, error) {
		fmt.Print("to stdout")
		fmt.Fprint(os.Stderr, "to stderr")
		return nil, nil
	})
	r.Register("crash", func(ctx *task.Context) (interface{}, error) {
		os.Exit(3)
		return nil, nil
	})
	r.Register("sleep", func(ctx *task.Context) (interface{}, error) {
		time.Sleep(time.Minute)
		return nil, nil
	})
	return r
}

// The test binary doubles as the worker subprocess.
func TestMain(m *testing.M) {
	if os.Getenv(subtaskEnv) == "1" {
		if err := RunSubtask(newTestRegistry()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type MockLibrary struct {
	mock.Mock
}

func (m *MockLibrary) Add(c *configuration.Configuration) error {
	return m.Called(c).Error(0)
}

func (m *MockLibrary) Get(hash utils.Digest) (*configuration.Configuration, error) {
	args := m.Called(hash)
	c, _ := args.Get(0).(*configuration.Configuration)
	return c, args.Error(1)
}

func (m *MockLibrary) Remove(hash utils.Digest) error {
	return m.Called(hash).Error(0)
}

func newConfiguration(t *testing.T, contents string) *configuration.Configuration {
	c, err := configuration.SingleFile("test", "value.txt", []byte(contents))
	require.NoError(t, err)
	return c
}

func newTestPool(t *testing.T, idle int, configurations ...*configuration.Configuration) *Pool {
	library := configuration.NewMemoryLibrary()
	for _, c := range configurations {
		require.NoError(t, library.Add(c))
	}

	pool := NewPool(library, &PoolConfig{
		Command:       []string{os.Args[0]},
		IdleProcesses: idle,
		Env:           []string{subtaskEnv + "=1"},
	})
	t.Cleanup(func() { pool.Close() })
	return pool
}

func call(t *testing.T, pool *Pool, id utils.Digest, v interface{}, function string, args ...interface{}) error {
	data, err := task.NewCall(function, args...)
	require.NoError(t, err)

	result, err := pool.Execute(context.Background(), id, data)
	require.NoError(t, err)

	return task.Evaluate(result, v, nil, nil)
}

func TestPoolExecute(t *testing.T) {
	c := newConfiguration(t, "hello")
	pool := newTestPool(t, 1, c)

	var value string
	require.NoError(t, call(t, pool, c.Hash(), &value, "double", "ab"))
	assert.Equal(t, "abab", value)

	require.NoError(t, call(t, pool, c.Hash(), &value, "read", "value.txt"))
	assert.Equal(t, "hello", value)

	info := pool.Info()
	assert.Equal(t, dispatcher.LocalWorker, info.Type)
	assert.Equal(t, 1, info.Processes)
}

func TestPoolReusesProcess(t *testing.T) {
	c := newConfiguration(t, "hello")
	pool := newTestPool(t, 1, c)

	var first, second int
	require.NoError(t, call(t, pool, c.Hash(), &first, "pid"))
	require.NoError(t, call(t, pool, c.Hash(), &second, "pid"))
	assert.Equal(t, first, second)
}

func TestPoolSwitchesConfiguration(t *testing.T) {
	a := newConfiguration(t, "a")
	b := newConfiguration(t, "b")
	pool := newTestPool(t, 1, a, b)

	var pidA, pidB, pidA2 int
	var value string
	require.NoError(t, call(t, pool, a.Hash(), &pidA, "pid"))
	require.NoError(t, call(t, pool, b.Hash(), &pidB, "pid"))
	require.NoError(t, call(t, pool, b.Hash(), &value, "read", "value.txt"))
	assert.Equal(t, "b", value)
	require.NoError(t, call(t, pool, a.Hash(), &pidA2, "pid"))

	assert.NotEqual(t, pidA, pidB)
	assert.NotEqual(t, pidA, pidA2)
	assert.Equal(t, 1, pool.Info().Processes)
}

func TestPoolCachesSeveralConfigurations(t *testing.T) {
	a := newConfiguration(t, "a")
	b := newConfiguration(t, "b")
	pool := newTestPool(t, 2, a, b)

	var pidA, pidB, pidA2 int
	require.NoError(t, call(t, pool, a.Hash(), &pidA, "pid"))
	require.NoError(t, call(t, pool, b.Hash(), &pidB, "pid"))
	require.NoError(t, call(t, pool, a.Hash(), &pidA2, "pid"))

	assert.NotEqual(t, pidA, pidB)
	assert.Equal(t, pidA, pidA2)
	assert.Equal(t, 2, pool.Info().Processes)
}

func TestPoolCapturesOutput(t *testing.T) {
	c := newConfiguration(t, "hello")
	pool := newTestPool(t, 1, c)

	data, err := task.NewCall("print")
	require.NoError(t, err)
	result, err := pool.Execute(context.Background(), c.Hash(), data)
	require.NoError(t, err)

	stdout, stderr := bytes.Buffer{}, bytes.Buffer{}
	require.NoError(t, task.Evaluate(result, nil, &stdout, &stderr))
	assert.Equal(t, "to stdout", stdout.String())
	assert.Equal(t, "to stderr", stderr.String())

	// Output is not carried over to the next task.
	stdout.Reset()
	require.NoError(t, call(t, pool, c.Hash(), nil, "pid"))
	assert.Empty(t, stdout.String())
}

func TestPoolProcessCrash(t *testing.T) {
	c := newConfiguration(t, "hello")
	pool := newTestPool(t, 1, c)

	err := call(t, pool, c.Hash(), nil, "crash")
	var taskErr *task.Error
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, task.ProcessError, taskErr.Kind)
	assert.Equal(t, 0, pool.Info().Processes)

	// A new process serves the next task.
	var value string
	require.NoError(t, call(t, pool, c.Hash(), &value, "double", "x"))
	assert.Equal(t, "xx", value)
}

func TestPoolTaskFailure(t *testing.T) {
	c := newConfiguration(t, "hello")
	pool := newTestPool(t, 1, c)

	err := call(t, pool, c.Hash(), nil, "read", "missing.txt")
	var taskErr *task.Error
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, task.TaskError, taskErr.Kind)

	err = call(t, pool, c.Hash(), nil, "unknown")
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, task.MalformedError, taskErr.Kind)
}

func TestPoolConfigurationLoadFailure(t *testing.T) {
	corrupt := configuration.New("corrupt", []byte("not a bundle"))
	pool := newTestPool(t, 1, corrupt)

	err := call(t, pool, corrupt.Hash(), nil, "pid")
	var taskErr *task.Error
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, task.ConfigurationError, taskErr.Kind)
	assert.Equal(t, 0, pool.Info().Processes)
}

func TestPoolConfigurationMissing(t *testing.T) {
	pool := newTestPool(t, 1)

	err := call(t, pool, utils.Sha256([]byte("missing")), nil, "pid")
	var taskErr *task.Error
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, task.ConfigurationError, taskErr.Kind)
	assert.Equal(t, 0, pool.Info().Processes)
}

func TestPoolLibraryConnectionLost(t *testing.T) {
	id := utils.Sha256([]byte("remote"))

	library := &MockLibrary{}
	library.On("Get", id).Return(nil, fmt.Errorf("%w: closed", utils.ErrConnectionLost))

	pool := NewPool(library, &PoolConfig{Command: []string{os.Args[0]}, Env: []string{subtaskEnv + "=1"}})
	defer pool.Close()

	data, err := task.NewCall("pid")
	require.NoError(t, err)

	_, err = pool.Execute(context.Background(), id, data)
	assert.ErrorIs(t, err, utils.ErrConnectionLost)
	library.AssertExpectations(t)
}

func TestPoolContextCancelled(t *testing.T) {
	c := newConfiguration(t, "hello")
	pool := newTestPool(t, 1, c)

	data, err := task.NewCall("sleep")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err = pool.Execute(ctx, c.Hash(), data)
	assert.ErrorIs(t, err, utils.ErrConnectionLost)
	assert.Equal(t, 0, pool.Info().Processes)
}

func TestPoolCancelledProcessNotReused(t *testing.T) {
	c := newConfiguration(t, "hello")
	pool := newTestPool(t, 1, c)

	data, err := task.NewCall("double", "ab")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		// Warm up an idle process
		_, err := pool.Execute(context.Background(), c.Hash(), data)
		require.NoError(t, err)
		require.Equal(t, 1, pool.Info().Processes)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// The task may complete before the process is killed, but
		// the process must never return to the idle cache.
		result, err := pool.Execute(ctx, c.Hash(), data)
		if err != nil {
			assert.ErrorIs(t, err, utils.ErrConnectionLost)
		} else {
			var value string
			assert.NoError(t, task.Evaluate(result, &value, nil, nil))
			assert.Equal(t, "abab", value)
		}
		assert.Equal(t, 0, pool.Info().Processes)
	}
}

func TestProcessQuitAfterExit(t *testing.T) {
	out := &bytes.Buffer{}
	log.SetOutput(out, out)
	log.SetLevel(log.TraceLevel)
	t.Cleanup(func() { log.SetOutput(os.Stdout, os.Stderr) })

	config := &PoolConfig{Command: []string{os.Args[0]}, Env: []string{subtaskEnv + "=1"}}
	proc, err := startProcess(config, newConfiguration(t, "hello").Hash())
	require.NoError(t, err)

	proc.kill()
	proc.wait()

	assert.Error(t, proc.quit())
	assert.Contains(t, out.String(), "Failed to tell worker process to quit")
}

func TestPoolAsDispatcherWorker(t *testing.T) {
	c := newConfiguration(t, "hello")
	pool := newTestPool(t, 2, c)

	d := dispatcher.NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.AddWorker(pool, 2))

	futures := []*utils.Future[[]byte]{}
	for i := 0; i < 6; i++ {
		data, err := task.NewCall("double", strings.Repeat("a", i))
		require.NoError(t, err)
		future, err := d.Submit(c.Hash(), data)
		require.NoError(t, err)
		futures = append(futures, future)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer waitCancel()

	for i, future := range futures {
		result, err := future.Wait(waitCtx)
		require.NoError(t, err)

		var value string
		require.NoError(t, task.Evaluate(result, &value, nil, nil))
		assert.Equal(t, strings.Repeat("a", 2*i), value)
	}
}

func TestPoolConfigDefaults(t *testing.T) {
	config := PoolConfig{}
	config.SetDefaults()
	assert.Equal(t, 1, config.IdleProcesses)
	require.Len(t, config.Command, 2)
	assert.Equal(t, "subtask", config.Command[1])
}
