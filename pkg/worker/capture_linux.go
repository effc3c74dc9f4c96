//go:build linux

package worker

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

type subtaskStreams struct {
	in      io.Reader
	out     io.Writer
	log     io.Writer
	capture *fdCapture
}

// Moves the protocol streams away from file descriptors 0, 1 and 2 so that
// task functions and their child processes cannot interfere with them.
// Standard input is replaced by /dev/null and standard output by standard error.
func openSubtaskStreams() (*subtaskStreams, error) {
	in, err := unix.Dup(0)
	if err != nil {
		return nil, err
	}
	out, err := unix.Dup(1)
	if err != nil {
		return nil, err
	}
	logOut, err := unix.Dup(2)
	if err != nil {
		return nil, err
	}

	devnull, err := os.Open(os.DevNull)
	if err != nil {
		return nil, err
	}
	defer devnull.Close()

	if err := unix.Dup2(int(devnull.Fd()), 0); err != nil {
		return nil, err
	}
	if err := unix.Dup2(2, 1); err != nil {
		return nil, err
	}

	capture, err := newOutputCapture()
	if err != nil {
		return nil, err
	}

	return &subtaskStreams{
		in:      os.NewFile(uintptr(in), "protocol-in"),
		out:     os.NewFile(uintptr(out), "protocol-out"),
		log:     os.NewFile(uintptr(logOut), "log"),
		capture: capture,
	}, nil
}

// Redirects file descriptors 1 and 2 into unlinked temporary files.
type fdCapture struct {
	stdout   *os.File
	stderr   *os.File
	savedOut int
	savedErr int
}

func newOutputCapture() (*fdCapture, error) {
	stdout, err := os.CreateTemp("", "multinode-stdout-")
	if err != nil {
		return nil, err
	}
	os.Remove(stdout.Name())

	stderr, err := os.CreateTemp("", "multinode-stderr-")
	if err != nil {
		stdout.Close()
		return nil, err
	}
	os.Remove(stderr.Name())

	capture := &fdCapture{stdout: stdout, stderr: stderr, savedOut: -1, savedErr: -1}

	if capture.savedOut, err = unix.Dup(1); err != nil {
		capture.Close()
		return nil, err
	}
	if capture.savedErr, err = unix.Dup(2); err != nil {
		capture.Close()
		return nil, err
	}

	return capture, nil
}

func (c *fdCapture) Start() error {
	for _, file := range []*os.File{c.stdout, c.stderr} {
		if err := file.Truncate(0); err != nil {
			return err
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}

	if err := unix.Dup2(int(c.stdout.Fd()), 1); err != nil {
		return err
	}
	return unix.Dup2(int(c.stderr.Fd()), 2)
}

func (c *fdCapture) Stop() ([]byte, []byte, error) {
	if err := unix.Dup2(c.savedOut, 1); err != nil {
		return nil, nil, err
	}
	if err := unix.Dup2(c.savedErr, 2); err != nil {
		return nil, nil, err
	}

	stdout, err := readCapture(c.stdout)
	if err != nil {
		return nil, nil, err
	}
	stderr, err := readCapture(c.stderr)
	if err != nil {
		return nil, nil, err
	}
	return stdout, stderr, nil
}

func (c *fdCapture) Close() error {
	if c.savedOut >= 0 {
		unix.Close(c.savedOut)
	}
	if c.savedErr >= 0 {
		unix.Close(c.savedErr)
	}
	c.stdout.Close()
	return c.stderr.Close()
}

func readCapture(file *os.File) ([]byte, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(file)
}
