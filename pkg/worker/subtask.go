package worker

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/task"
	"github.com/srand/multinode/pkg/utils"
)

// Control bytes exchanged with a worker subprocess.
const (
	controlReady   = '1'
	controlFailed  = '0'
	controlTask    = 'T'
	controlQuit    = 'Q'
	lengthByteSize = 4
)

// Captures the output of the running process while a task executes.
type OutputCapture interface {
	Start() error
	Stop() (stdout []byte, stderr []byte, err error)
}

func writeMessage(w io.Writer, data []byte) error {
	buf := make([]byte, lengthByteSize, lengthByteSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	_, err := w.Write(append(buf, data...))
	return err
}

func readMessage(r io.Reader) ([]byte, error) {
	header := make([]byte, lengthByteSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	data := make([]byte, binary.BigEndian.Uint32(header))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Worker subprocess main loop.
//
// Reads one configuration from in, applies it into a private temporary
// directory and then executes tasks until told to quit or in is closed.
// Results are written to out. A configuration that cannot be loaded is
// reported to the parent as a failure result, after which Subtask returns.
func Subtask(registry *task.Registry, in io.Reader, out io.Writer, capture OutputCapture) error {
	reader := bufio.NewReader(in)
	writer := bufio.NewWriter(out)

	data, err := readMessage(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	env, err := loadConfiguration(data)
	if err != nil {
		log.Debug("Configuration could not be loaded:", err)
		failure := task.EncodeFailure(task.NewError(task.ConfigurationError, err), nil, nil)
		if err := writer.WriteByte(controlFailed); err != nil {
			return err
		}
		if err := writeMessage(writer, failure); err != nil {
			return err
		}
		return writer.Flush()
	}
	defer env.Close()

	if err := writer.WriteByte(controlReady); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	for {
		control, err := reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch control {
		case controlQuit:
			log.Trace("Subprocess quitting")
			return nil

		case controlTask:
			data, err := readMessage(reader)
			if err != nil {
				return err
			}

			if err := writeMessage(writer, runTask(registry, env, data, capture)); err != nil {
				return err
			}
			if err := writer.Flush(); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: unknown control byte %q", utils.ErrProtocol, control)
		}
	}
}

func loadConfiguration(data []byte) (*configuration.Environment, error) {
	c, err := configuration.Decode(data)
	if err != nil {
		return nil, err
	}
	return c.Apply(utils.NewOsFs(), "")
}

func runTask(registry *task.Registry, env *configuration.Environment, data []byte, capture OutputCapture) []byte {
	if err := capture.Start(); err != nil {
		return task.EncodeFailure(task.NewError(task.ProcessError, err), nil, nil)
	}

	value, err := registry.Run(env, data)

	stdout, stderr, captureErr := capture.Stop()
	if captureErr != nil {
		log.Debug("Output capture failed:", captureErr)
	}

	if err != nil {
		return task.EncodeFailure(err, stdout, stderr)
	}
	return task.EncodeResult(value, stdout, stderr)
}

// Runs the worker subprocess on the standard streams of the process.
// Task output is captured; the protocol and log output never mix with it.
func RunSubtask(registry *task.Registry) error {
	streams, err := openSubtaskStreams()
	if err != nil {
		return err
	}
	defer streams.capture.Close()

	log.SetOutput(streams.log, streams.log)

	return Subtask(registry, streams.in, streams.out, streams.capture)
}
