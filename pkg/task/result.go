package task

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/srand/multinode/pkg/utils"
)

type ErrorKind string

const (
	// The function returned an error.
	TaskError ErrorKind = "task"
	// The function panicked.
	PanicError ErrorKind = "panic"
	// The task could not be decoded or named an unknown function.
	MalformedError ErrorKind = "malformed"
	// The worker subprocess died while running the task.
	ProcessError ErrorKind = "process"
	// The configuration could not be loaded.
	ConfigurationError ErrorKind = "configuration"
	// The function's return value could not be encoded.
	SerializationError ErrorKind = "serialization"
)

// A task failure as reported to the submitter.
type Error struct {
	Kind    ErrorKind `cbor:"1,keyasint"`
	Message string    `cbor:"2,keyasint"`
	Details string    `cbor:"3,keyasint,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Kind == SerializationError {
		return utils.ErrSerialization
	}
	return nil
}

// Converts any error into a task error of the given kind.
// Task errors keep their own kind.
func NewError(kind ErrorKind, err error) *Error {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr
	}

	result := &Error{Kind: kind, Message: err.Error()}

	var detailed utils.DetailedError
	if errors.As(err, &detailed) {
		result.Details = detailed.Details()
	}
	return result
}

// The outcome of a task, with the output it produced.
type Result struct {
	Success bool            `cbor:"1,keyasint"`
	Value   cbor.RawMessage `cbor:"2,keyasint,omitempty"`
	Error   *Error          `cbor:"3,keyasint,omitempty"`
	Stdout  []byte          `cbor:"4,keyasint,omitempty"`
	Stderr  []byte          `cbor:"5,keyasint,omitempty"`
}

func encode(result *Result) []byte {
	data, err := utils.Marshal(result)
	if err != nil {
		// Only raw bytes and strings remain, which always encode.
		panic(err)
	}
	return data
}

// Encodes a successful result. A value that cannot be encoded
// produces a serialization failure instead.
func EncodeResult(value interface{}, stdout, stderr []byte) []byte {
	data, err := utils.Marshal(value)
	if err != nil {
		return EncodeFailure(&Error{Kind: SerializationError, Message: err.Error()}, stdout, stderr)
	}
	return encode(&Result{Success: true, Value: data, Stdout: stdout, Stderr: stderr})
}

// Encodes a failed result. Errors that are not task errors are reported as TaskError.
func EncodeFailure(err error, stdout, stderr []byte) []byte {
	return encode(&Result{Error: NewError(TaskError, err), Stdout: stdout, Stderr: stderr})
}

func DecodeResult(data []byte) (*Result, error) {
	var result Result
	if err := utils.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	if !result.Success && result.Error == nil {
		return nil, fmt.Errorf("%w: failed result without error", utils.ErrParse)
	}
	return &result, nil
}

// Interprets an encoded result.
//
// Captured output is replayed to stdout and stderr, which may be nil.
// A failed task returns its *Error, otherwise the value is decoded into v
// unless v is nil.
func Evaluate(data []byte, v interface{}, stdout, stderr io.Writer) error {
	result, err := DecodeResult(data)
	if err != nil {
		return err
	}

	if stdout != nil && len(result.Stdout) > 0 {
		stdout.Write(result.Stdout)
	}
	if stderr != nil && len(result.Stderr) > 0 {
		stderr.Write(result.Stderr)
	}

	if !result.Success {
		return result.Error
	}

	if v == nil {
		return nil
	}
	return utils.Unmarshal(result.Value, v)
}
