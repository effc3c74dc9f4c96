package worker

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

// A worker subprocess, as seen from the pool.
type process struct {
	cmd             *utils.Command
	stdin           io.WriteCloser
	stdout          *bufio.Reader
	configurationId utils.Digest

	waitOnce sync.Once
	waitErr  error
	exited   chan struct{}
}

func startProcess(config *PoolConfig, configurationId utils.Digest) (*process, error) {
	cmd := utils.NewCommand(config.Command...)
	if len(config.Env) > 0 {
		cmd.SetEnv(append(os.Environ(), config.Env...))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	log.Tracef("Started worker process %d: %s", cmd.GetPid(), strings.Join(cmd.Args(), " "))

	return &process{
		cmd:             cmd,
		stdin:           stdin,
		stdout:          bufio.NewReader(stdout),
		configurationId: configurationId,
		exited:          make(chan struct{}),
	}, nil
}

// Streams the configuration to the process and waits for it to be applied.
// Returns the encoded failure result if the process could not load it.
func (p *process) load(c *configuration.Configuration) ([]byte, error) {
	data, err := configuration.Encode(c)
	if err != nil {
		return nil, err
	}

	if err := writeMessage(p.stdin, data); err != nil {
		return nil, err
	}

	ack, err := p.stdout.ReadByte()
	if err != nil {
		return nil, err
	}

	switch ack {
	case controlReady:
		return nil, nil
	case controlFailed:
		return readMessage(p.stdout)
	default:
		return nil, fmt.Errorf("%w: unexpected acknowledgement %q", utils.ErrProtocol, ack)
	}
}

// Runs a task in the process and returns its encoded result.
func (p *process) execute(task []byte) ([]byte, error) {
	if _, err := p.stdin.Write([]byte{controlTask}); err != nil {
		return nil, err
	}
	if err := writeMessage(p.stdin, task); err != nil {
		return nil, err
	}
	return readMessage(p.stdout)
}

// Tells the process to exit and waits for it.
func (p *process) quit() error {
	if _, err := p.stdin.Write([]byte{controlQuit}); err != nil {
		log.Trace("Failed to tell worker process to quit:", err)
	}
	p.stdin.Close()
	return p.wait()
}

func (p *process) kill() {
	select {
	case <-p.exited:
	default:
		if err := p.cmd.Kill(); err != nil {
			log.Trace("Failed to kill worker process:", err)
		}
	}
}

func (p *process) wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		close(p.exited)
		log.Tracef("Worker process %d exited: %v", p.cmd.GetPid(), p.waitErr)
	})
	return p.waitErr
}
