package protocol

import (
	"fmt"
	"sync"

	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

// Called by the read loop for each incoming frame of a registered command.
// Handlers must not block; long running work belongs in a goroutine.
type Handler func(command CommandCode, sequence uint32, payload []byte)

// Request/response correlation on top of a Protocol.
//
// Outgoing requests are assigned a sequence number and a future which
// is resolved when a Response frame with the same sequence arrives.
// All other incoming commands are routed to registered handlers.
// When the stream ends, every outstanding future is rejected with
// utils.ErrConnectionLost and the multiplexer refuses new requests.
type RequestProtocol struct {
	protocol *Protocol

	mu       sync.Mutex
	counter  uint32
	pending  map[uint32]*utils.Future[[]byte]
	handlers map[CommandCode]Handler
	alive    bool
	started  bool

	done chan struct{}
}

func NewRequestProtocol(protocol *Protocol) *RequestProtocol {
	return &RequestProtocol{
		protocol: protocol,
		pending:  map[uint32]*utils.Future[[]byte]{},
		handlers: map[CommandCode]Handler{},
		alive:    true,
		done:     make(chan struct{}),
	}
}

// Registers a handler for an incoming command.
// Should be called before Start.
func (rp *RequestProtocol) RegisterHandler(command CommandCode, handler Handler) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.handlers[command] = handler
}

// Starts the read loop. Subsequent calls have no effect.
func (rp *RequestProtocol) Start() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.started {
		return
	}
	rp.started = true
	go rp.process()
}

func (rp *RequestProtocol) process() {
	defer close(rp.done)
	defer rp.cleanup()

	for {
		msg := rp.protocol.Receive()
		if msg == nil {
			log.Trace("Connection closed")
			return
		}

		if msg.Command == Response {
			rp.mu.Lock()
			future, ok := rp.pending[msg.Sequence]
			delete(rp.pending, msg.Sequence)
			rp.mu.Unlock()

			if !ok {
				log.Debugf("Dropping response with unknown sequence %d", msg.Sequence)
				continue
			}

			future.Resolve(msg.Payload)
			continue
		}

		rp.mu.Lock()
		handler, ok := rp.handlers[msg.Command]
		rp.mu.Unlock()

		if !ok {
			log.Warnf("Protocol violation, unexpected command %v, closing connection", msg.Command)
			rp.protocol.Close()
			return
		}

		handler(msg.Command, msg.Sequence, msg.Payload)
	}
}

func (rp *RequestProtocol) cleanup() {
	rp.mu.Lock()
	rp.alive = false
	pending := rp.pending
	rp.pending = map[uint32]*utils.Future[[]byte]{}
	rp.mu.Unlock()

	for _, future := range pending {
		future.Reject(utils.ErrConnectionLost)
	}
}

func (rp *RequestProtocol) nextSequence() uint32 {
	sequence := rp.counter
	rp.counter++
	return sequence
}

// Sends a request and returns a future for the response payload.
func (rp *RequestProtocol) Request(command CommandCode, payload []byte) (*utils.Future[[]byte], error) {
	rp.mu.Lock()
	if !rp.alive {
		rp.mu.Unlock()
		return nil, utils.ErrConnectionLost
	}
	sequence := rp.nextSequence()
	future := utils.NewFuture[[]byte]()
	rp.pending[sequence] = future
	rp.mu.Unlock()

	if err := rp.send(command, sequence, payload); err != nil {
		rp.mu.Lock()
		delete(rp.pending, sequence)
		rp.mu.Unlock()
		return nil, err
	}

	return future, nil
}

// Sends the response to a previously received request.
func (rp *RequestProtocol) Respond(sequence uint32, payload []byte) error {
	return rp.send(Response, sequence, payload)
}

// Sends a command that expects no response.
func (rp *RequestProtocol) Command(command CommandCode, payload []byte) error {
	rp.mu.Lock()
	sequence := rp.nextSequence()
	rp.mu.Unlock()

	return rp.send(command, sequence, payload)
}

func (rp *RequestProtocol) send(command CommandCode, sequence uint32, payload []byte) error {
	if err := rp.protocol.Send(command, sequence, payload); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}
	return nil
}

// Closes the underlying stream. The read loop terminates and
// outstanding requests are rejected.
func (rp *RequestProtocol) Close() error {
	return rp.protocol.Close()
}

// Blocks until the read loop has terminated.
func (rp *RequestProtocol) Wait() {
	<-rp.done
}

// Closed when the read loop has terminated.
func (rp *RequestProtocol) Done() <-chan struct{} {
	return rp.done
}

func (rp *RequestProtocol) Alive() bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.alive
}
