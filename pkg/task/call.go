package task

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/utils"
)

// A function invocation, the unit of work carried by a task.
type Call struct {
	Function string            `cbor:"1,keyasint"`
	Args     []cbor.RawMessage `cbor:"2,keyasint"`
}

// Encodes a call to a registered function.
func NewCall(function string, args ...interface{}) ([]byte, error) {
	call := Call{Function: function}
	for _, arg := range args {
		data, err := utils.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", len(call.Args), function, err)
		}
		call.Args = append(call.Args, data)
	}
	return utils.Marshal(call)
}

func DecodeCall(data []byte) (*Call, error) {
	var call Call
	if err := utils.Unmarshal(data, &call); err != nil {
		return nil, err
	}
	if call.Function == "" {
		return nil, fmt.Errorf("%w: call without function", utils.ErrParse)
	}
	return &call, nil
}

// The view of a call available to a running function.
type Context struct {
	// The configuration that the task runs against.
	Env *configuration.Environment

	args []cbor.RawMessage
}

func NewContext(env *configuration.Environment, call *Call) *Context {
	return &Context{Env: env, args: call.Args}
}

func (c *Context) NumArgs() int {
	return len(c.args)
}

// Decodes argument i into v.
func (c *Context) Arg(i int, v interface{}) error {
	if i < 0 || i >= len(c.args) {
		return &Error{Kind: MalformedError, Message: fmt.Sprintf("missing argument %d", i)}
	}
	if err := utils.Unmarshal(c.args[i], v); err != nil {
		return &Error{Kind: MalformedError, Message: fmt.Sprintf("argument %d: %v", i, err)}
	}
	return nil
}

// Decodes all arguments, one pointer per argument.
func (c *Context) Args(v ...interface{}) error {
	if len(v) != len(c.args) {
		return &Error{Kind: MalformedError, Message: fmt.Sprintf("expected %d arguments, got %d", len(v), len(c.args))}
	}
	for i := range v {
		if err := c.Arg(i, v[i]); err != nil {
			return err
		}
	}
	return nil
}
