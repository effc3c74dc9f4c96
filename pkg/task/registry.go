package task

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/log"
)

// A function that can be called by tasks.
type Function func(ctx *Context) (interface{}, error)

// Named functions that tasks may call.
// A worker binary resolves every task it runs in its registry.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// Returns a registry holding the builtin functions.
func NewRegistry() *Registry {
	r := &Registry{functions: map[string]Function{}}
	r.Register("echo", echo)
	r.Register("exec", execute)
	return r
}

// Registers a function. An existing function with the same name is replaced.
func (r *Registry) Register(name string, fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = fn
}

func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	return fn, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decodes and runs a task against an environment.
// Failures are returned as *Error. Panics in the function are recovered.
func (r *Registry) Run(env *configuration.Environment, data []byte) (value interface{}, err error) {
	call, err := DecodeCall(data)
	if err != nil {
		return nil, NewError(MalformedError, err)
	}

	fn, ok := r.Lookup(call.Function)
	if !ok {
		return nil, &Error{
			Kind:    MalformedError,
			Message: fmt.Sprintf("unknown function: %s", call.Function),
			Details: fmt.Sprintf("registered functions: %s", strings.Join(r.Names(), ", ")),
		}
	}

	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = &Error{Kind: PanicError, Message: fmt.Sprint(p), Details: string(debug.Stack())}
		}
	}()

	log.Tracef("Calling %s with %d arguments", call.Function, len(call.Args))

	value, err = fn(NewContext(env, call))
	if err != nil {
		return nil, NewError(TaskError, err)
	}
	return value, nil
}
