package proxy

import (
	"fmt"
	"sync"

	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/protocol"
	"github.com/srand/multinode/pkg/utils"
)

// Payload of AddWorker.
type addWorkerRequest struct {
	Slots int                   `cbor:"1,keyasint"`
	Info  dispatcher.WorkerInfo `cbor:"2,keyasint"`
}

// Serves a dispatcher to the peer.
type DispatcherServer struct {
	sync.Mutex
	dispatcher dispatcher.Dispatcher
	rp         *protocol.RequestProtocol
	worker     *WorkerClient
}

func NewDispatcherServer(d dispatcher.Dispatcher, rp *protocol.RequestProtocol) *DispatcherServer {
	s := &DispatcherServer{dispatcher: d, rp: rp}
	rp.RegisterHandler(protocol.AddWorker, s.addWorker)
	rp.RegisterHandler(protocol.DispatchTask, s.submit)
	return s
}

func (s *DispatcherServer) addWorker(_ protocol.CommandCode, _ uint32, payload []byte) {
	request := addWorkerRequest{}
	if err := utils.Unmarshal(payload, &request); err != nil {
		log.Debug("Invalid worker registration received:", err)
		s.rp.Close()
		return
	}

	// The peer is one worker, however many times it registers slots.
	s.Lock()
	if s.worker == nil {
		s.worker = NewWorkerClient(s.rp, request.Info)
	}
	worker := s.worker
	s.Unlock()

	if err := s.dispatcher.AddWorker(worker, request.Slots); err != nil {
		log.Debug("Worker registration rejected:", err)
		s.rp.Close()
	}
}

func (s *DispatcherServer) submit(_ protocol.CommandCode, sequence uint32, payload []byte) {
	id, task, err := decodeTaskRequest(payload)
	if err != nil {
		log.Debug("Invalid task received:", err)
		s.rp.Close()
		return
	}

	future, err := s.dispatcher.Submit(id, task)
	if err != nil {
		log.Debug("Task submission failed:", err)
		s.rp.Close()
		return
	}

	go func() {
		result, err := future.Result()
		if err != nil {
			log.Debug("Task rejected, closing connection:", err)
			s.rp.Close()
			return
		}

		if err := s.rp.Respond(sequence, result); err != nil {
			log.Debug("Failed to respond with task result:", err)
		}
	}()
}

// A dispatcher served by the peer.
type DispatcherClient struct {
	sync.Mutex
	rp     *protocol.RequestProtocol
	worker dispatcher.Worker
}

func NewDispatcherClient(rp *protocol.RequestProtocol) *DispatcherClient {
	return &DispatcherClient{rp: rp}
}

// Offers a local worker to the peer dispatcher.
// Only one worker can be offered per connection; offering it again adds slots.
func (c *DispatcherClient) AddWorker(worker dispatcher.Worker, slots int) error {
	if slots <= 0 {
		return fmt.Errorf("%w: worker must have at least one slot", utils.ErrBadRequest)
	}

	c.Lock()
	switch c.worker {
	case nil:
		c.worker = worker
		NewWorkerServer(worker, c.rp)
	case worker:
	default:
		c.Unlock()
		return fmt.Errorf("%w: a different worker is already registered on this connection", utils.ErrBadRequest)
	}
	c.Unlock()

	payload, err := utils.Marshal(&addWorkerRequest{Slots: slots, Info: worker.Info()})
	if err != nil {
		return err
	}
	return c.rp.Command(protocol.AddWorker, payload)
}

// Submits a task to the peer dispatcher. The future is rejected with
// utils.ErrConnectionLost if the connection ends before a result arrives.
func (c *DispatcherClient) Submit(configurationId utils.Digest, task []byte) (*utils.Future[[]byte], error) {
	payload, err := encodeTaskRequest(configurationId, task)
	if err != nil {
		return nil, err
	}
	return c.rp.Request(protocol.DispatchTask, payload)
}
