package proxy

import (
	"errors"
	"fmt"

	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/protocol"
	"github.com/srand/multinode/pkg/utils"
)

// Reply to a GetConfiguration request.
type getReply struct {
	Configuration *configuration.Configuration `cbor:"1,keyasint,omitempty"`
	Error         string                       `cbor:"2,keyasint,omitempty"`
	NotFound      bool                         `cbor:"3,keyasint,omitempty"`
}

// Serves a configuration library to the peer.
type LibraryServer struct {
	library configuration.Library
	rp      *protocol.RequestProtocol
}

func NewLibraryServer(library configuration.Library, rp *protocol.RequestProtocol) *LibraryServer {
	s := &LibraryServer{library: library, rp: rp}
	rp.RegisterHandler(protocol.AddConfiguration, s.add)
	rp.RegisterHandler(protocol.GetConfiguration, s.get)
	rp.RegisterHandler(protocol.RemoveConfiguration, s.remove)
	return s
}

func (s *LibraryServer) add(_ protocol.CommandCode, _ uint32, payload []byte) {
	c, err := configuration.Decode(payload)
	if err != nil {
		log.Debug("Invalid configuration received:", err)
		s.rp.Close()
		return
	}

	if err := s.library.Add(c); err != nil {
		log.Warnf("Failed to add configuration %s: %v", c.Hash(), err)
		return
	}

	log.Debugf("Configuration %s (%s) added", c.Name, c.Hash())
}

func (s *LibraryServer) get(_ protocol.CommandCode, sequence uint32, payload []byte) {
	hash, err := utils.ParseDigest(string(payload))
	if err != nil {
		log.Debug("Invalid configuration hash received:", err)
		s.rp.Close()
		return
	}

	// Storage may be remote, keep the read loop going.
	go func() {
		reply := getReply{}

		c, err := s.library.Get(hash)
		switch {
		case err == nil:
			reply.Configuration = c
		case errors.Is(err, utils.ErrNotFound):
			reply.NotFound = true
			reply.Error = err.Error()
		default:
			reply.Error = err.Error()
		}

		data, err := utils.Marshal(&reply)
		if err != nil {
			log.Debug(err)
			s.rp.Close()
			return
		}

		if err := s.rp.Respond(sequence, data); err != nil {
			log.Debug("Failed to respond with configuration:", err)
		}
	}()
}

func (s *LibraryServer) remove(_ protocol.CommandCode, _ uint32, payload []byte) {
	hash, err := utils.ParseDigest(string(payload))
	if err != nil {
		log.Debug("Invalid configuration hash received:", err)
		s.rp.Close()
		return
	}

	if err := s.library.Remove(hash); err != nil {
		log.Debugf("Failed to remove configuration %s: %v", hash, err)
	}
}

// A configuration library served by the peer.
type LibraryClient struct {
	rp *protocol.RequestProtocol
}

func NewLibraryClient(rp *protocol.RequestProtocol) *LibraryClient {
	return &LibraryClient{rp: rp}
}

// Sends the configuration to the peer. No reply is awaited.
func (c *LibraryClient) Add(conf *configuration.Configuration) error {
	data, err := configuration.Encode(conf)
	if err != nil {
		return err
	}
	return c.rp.Command(protocol.AddConfiguration, data)
}

func (c *LibraryClient) Get(hash utils.Digest) (*configuration.Configuration, error) {
	future, err := c.rp.Request(protocol.GetConfiguration, []byte(hash.String()))
	if err != nil {
		return nil, err
	}

	data, err := future.Result()
	if err != nil {
		return nil, err
	}

	reply := getReply{}
	if err := utils.Unmarshal(data, &reply); err != nil {
		return nil, err
	}

	switch {
	case reply.NotFound:
		return nil, fmt.Errorf("%w: configuration %s", utils.ErrNotFound, hash)
	case reply.Error != "":
		return nil, errors.New(reply.Error)
	case reply.Configuration == nil:
		return nil, fmt.Errorf("%w: empty configuration reply", utils.ErrProtocol)
	}

	return reply.Configuration, nil
}

// Asks the peer to remove the configuration. No reply is awaited,
// a missing configuration is not reported.
func (c *LibraryClient) Remove(hash utils.Digest) error {
	return c.rp.Command(protocol.RemoveConfiguration, []byte(hash.String()))
}
