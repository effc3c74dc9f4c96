//go:build linux

package utils

import (
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// A child process started in its own process group,
// so that it and all of its descendants can be killed together.
type Command struct {
	cmd *exec.Cmd
}

func NewCommand(args ...string) *Command {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: 0}
	return &Command{cmd: cmd}
}

func (c *Command) Start() error {
	return c.cmd.Start()
}

func (c *Command) Wait() error {
	return c.cmd.Wait()
}

func (c *Command) Kill() error {
	return unix.Kill(-c.GetPid(), unix.SIGKILL)
}

// Must be called before Start.
func (c *Command) StdinPipe() (io.WriteCloser, error) {
	return c.cmd.StdinPipe()
}

// Must be called before Start.
func (c *Command) StdoutPipe() (io.ReadCloser, error) {
	c.cmd.Stdout = nil
	return c.cmd.StdoutPipe()
}

func (c *Command) SetStdout(w io.Writer) {
	c.cmd.Stdout = w
}

func (c *Command) SetStderr(w io.Writer) {
	c.cmd.Stderr = w
}

func (c *Command) SetDir(dir string) {
	c.cmd.Dir = dir
}

func (c *Command) SetEnv(env []string) {
	c.cmd.Env = env
}

func (c *Command) Args() []string {
	return c.cmd.Args
}

func (c *Command) GetPid() int {
	return c.cmd.Process.Pid
}
