package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/srand/multinode/pkg/log"
)

type commandError struct {
	message string
	details string
}

func NewCmdError(message, details string) error {
	return &commandError{
		message: message,
		details: details,
	}
}

func (c *commandError) Details() string {
	return c.details
}

func (c *commandError) Error() string {
	return c.message
}

// Runs a command to completion in the given directory.
// Output is forwarded to the current process stdout and stderr.
// On failure, the returned error carries the command's stderr as details.
func RunWaitCwd(cwd string, args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: empty command", ErrBadRequest)
	}

	output := bytes.Buffer{}

	cmd := NewCommand(args...)
	cmd.SetStdout(os.Stdout)
	cmd.SetStderr(io.MultiWriter(os.Stderr, &output))
	if cwd != "" {
		cmd.SetDir(cwd)
	}

	log.Debug("Running", strings.Join(cmd.Args(), " "))

	if err := cmd.Start(); err != nil {
		return err
	}

	if err := cmd.Wait(); err != nil {
		message := fmt.Sprintf("Command failed: %s (%v)", strings.Join(args, " "), err)
		return NewCmdError(message, output.String())
	}

	return nil
}
