package proxy

import (
	"context"
	"fmt"

	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/protocol"
	"github.com/srand/multinode/pkg/utils"
)

// Payload of WorkerTask and DispatchTask.
type taskRequest struct {
	ConfigurationId string `cbor:"1,keyasint"`
	Task            []byte `cbor:"2,keyasint"`
}

func encodeTaskRequest(configurationId utils.Digest, task []byte) ([]byte, error) {
	return utils.Marshal(&taskRequest{ConfigurationId: configurationId.String(), Task: task})
}

func decodeTaskRequest(payload []byte) (utils.Digest, []byte, error) {
	request := taskRequest{}
	if err := utils.Unmarshal(payload, &request); err != nil {
		return utils.Digest{}, nil, err
	}

	id, err := utils.ParseDigest(request.ConfigurationId)
	if err != nil {
		return utils.Digest{}, nil, err
	}
	return id, request.Task, nil
}

// Executes tasks requested by the peer on a local worker.
type WorkerServer struct {
	worker dispatcher.Worker
	rp     *protocol.RequestProtocol
	ctx    context.Context
}

func NewWorkerServer(worker dispatcher.Worker, rp *protocol.RequestProtocol) *WorkerServer {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-rp.Done()
		cancel()
	}()

	s := &WorkerServer{worker: worker, rp: rp, ctx: ctx}
	rp.RegisterHandler(protocol.WorkerTask, s.execute)
	return s
}

func (s *WorkerServer) execute(_ protocol.CommandCode, sequence uint32, payload []byte) {
	id, task, err := decodeTaskRequest(payload)
	if err != nil {
		log.Debug("Invalid task received:", err)
		s.rp.Close()
		return
	}

	go func() {
		result, err := s.worker.Execute(s.ctx, id, task)
		if err != nil {
			// The peer observes a lost connection and reschedules the task.
			log.Debug("Task execution failed, closing connection:", err)
			s.rp.Close()
			return
		}

		if err := s.rp.Respond(sequence, result); err != nil {
			log.Debug("Failed to respond with task result:", err)
		}
	}()
}

// A worker executing tasks on the peer.
type WorkerClient struct {
	rp   *protocol.RequestProtocol
	info dispatcher.WorkerInfo
}

func NewWorkerClient(rp *protocol.RequestProtocol, info dispatcher.WorkerInfo) *WorkerClient {
	info.Type = dispatcher.RemoteWorker
	return &WorkerClient{rp: rp, info: info}
}

func (c *WorkerClient) Execute(ctx context.Context, configurationId utils.Digest, task []byte) ([]byte, error) {
	payload, err := encodeTaskRequest(configurationId, task)
	if err != nil {
		return nil, err
	}

	future, err := c.rp.Request(protocol.WorkerTask, payload)
	if err != nil {
		return nil, err
	}

	result, err := future.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}
	return result, err
}

func (c *WorkerClient) Info() dispatcher.WorkerInfo {
	return c.info
}
