package handshake

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/protocol"
	"github.com/srand/multinode/pkg/proxy"
)

// Authenticates incoming connections and serves the
// dispatcher and configuration library on them.
type ConnectionHandler struct {
	dispatcher dispatcher.Dispatcher
	library    configuration.Library
	secret     []byte

	// Upper bound of the challenge exchange.
	Timeout time.Duration
}

func NewConnectionHandler(d dispatcher.Dispatcher, library configuration.Library, secret []byte) *ConnectionHandler {
	return &ConnectionHandler{
		dispatcher: d,
		library:    library,
		secret:     secret,
		Timeout:    DefaultTimeout,
	}
}

// Runs a connection until it is closed.
func (h *ConnectionHandler) NewConnection(conn io.ReadWriteCloser) {
	id := uuid.NewString()

	if err := accept(conn, h.secret, h.Timeout); err != nil {
		log.Infof("Session %s rejected: %v", id, err)
		conn.Close()
		return
	}

	rp := protocol.NewRequestProtocol(protocol.NewProtocol(conn))
	proxy.NewDispatcherServer(h.dispatcher, rp)
	proxy.NewLibraryServer(h.library, rp)

	log.Infof("Session %s established", id)
	rp.Start()
	rp.Wait()
	log.Infof("Session %s closed", id)
}

// Accepts connections until ctx is cancelled or the listener fails.
func Serve(ctx context.Context, listener net.Listener, handler dispatcher.ConnectionHandler) error {
	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			return err
		}

		log.Debug("Connection from", conn.RemoteAddr())
		go handler.NewConnection(conn)
	}
}
