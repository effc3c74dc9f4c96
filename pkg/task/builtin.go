package task

import (
	"github.com/srand/multinode/pkg/utils"
)

// Returns its single argument, or all arguments as a list.
func echo(ctx *Context) (interface{}, error) {
	values := make([]interface{}, ctx.NumArgs())
	for i := range values {
		if err := ctx.Arg(i, &values[i]); err != nil {
			return nil, err
		}
	}
	if len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}

// Runs a command in the configuration directory.
// The only argument is the command line as a list of strings.
func execute(ctx *Context) (interface{}, error) {
	var args []string
	if err := ctx.Args(&args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, &Error{Kind: MalformedError, Message: "empty command"}
	}

	dir := ""
	if ctx.Env != nil {
		dir = ctx.Env.Dir
	}

	if err := utils.RunWaitCwd(dir, args...); err != nil {
		return nil, err
	}

	return nil, nil
}
