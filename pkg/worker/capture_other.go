//go:build !linux

package worker

import (
	"io"
	"os"
)

type subtaskStreams struct {
	in      io.Reader
	out     io.Writer
	log     io.Writer
	capture *fileCapture
}

func openSubtaskStreams() (*subtaskStreams, error) {
	capture, err := newOutputCapture()
	if err != nil {
		return nil, err
	}

	return &subtaskStreams{
		in:      os.Stdin,
		out:     os.Stdout,
		log:     os.Stderr,
		capture: capture,
	}, nil
}

// Replaces os.Stdout and os.Stderr with temporary files.
// Output written directly to the file descriptors is not captured.
type fileCapture struct {
	stdout      *os.File
	stderr      *os.File
	savedStdout *os.File
	savedStderr *os.File
}

func newOutputCapture() (*fileCapture, error) {
	stdout, err := os.CreateTemp("", "multinode-stdout-")
	if err != nil {
		return nil, err
	}

	stderr, err := os.CreateTemp("", "multinode-stderr-")
	if err != nil {
		stdout.Close()
		os.Remove(stdout.Name())
		return nil, err
	}

	return &fileCapture{
		stdout:      stdout,
		stderr:      stderr,
		savedStdout: os.Stdout,
		savedStderr: os.Stderr,
	}, nil
}

func (c *fileCapture) Start() error {
	for _, file := range []*os.File{c.stdout, c.stderr} {
		if err := file.Truncate(0); err != nil {
			return err
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}

	os.Stdout = c.stdout
	os.Stderr = c.stderr
	return nil
}

func (c *fileCapture) Stop() ([]byte, []byte, error) {
	os.Stdout = c.savedStdout
	os.Stderr = c.savedStderr

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

func (c *fileCapture) Close() error {
	c.stdout.Close()
	c.stderr.Close()
	os.Remove(c.stdout.Name())
	return os.Remove(c.stderr.Name())
}

func readCapture(file *os.File) ([]byte, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(file)
}
