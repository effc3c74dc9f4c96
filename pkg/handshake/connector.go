package handshake

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/protocol"
	"github.com/srand/multinode/pkg/proxy"
	"github.com/srand/multinode/pkg/utils"
)

// An authenticated connection to a dispatcher service.
type Session struct {
	rp *protocol.RequestProtocol

	// The dispatcher served by the peer.
	Dispatcher *proxy.DispatcherClient

	// The configuration library served by the peer.
	Library *proxy.LibraryClient
}

// Authenticates an established stream and starts a session on it.
// The stream is closed if authentication fails.
func Connect(conn io.ReadWriteCloser, secret []byte) (*Session, error) {
	return connect(conn, secret, DefaultTimeout)
}

func connect(conn io.ReadWriteCloser, secret []byte, timeout time.Duration) (*Session, error) {
	if err := authenticate(conn, secret, timeout); err != nil {
		conn.Close()
		return nil, err
	}

	rp := protocol.NewRequestProtocol(protocol.NewProtocol(conn))
	session := &Session{
		rp:         rp,
		Dispatcher: proxy.NewDispatcherClient(rp),
		Library:    proxy.NewLibraryClient(rp),
	}
	rp.Start()
	return session, nil
}

// Connects to a dispatcher service.
//
// The URI is one of tcp://host[:port], unix:///path or http://host[:port].
// With http, the connection is upgraded through the dispatcher's HTTP server.
func Dial(ctx context.Context, uri string, secret []byte) (*Session, error) {
	endpoint, err := utils.ParseEndpoint(uri, utils.DefaultProtocolPort)
	if err != nil {
		return nil, err
	}
	if endpoint.Scheme == "http" {
		if endpoint, err = utils.ParseEndpoint(uri, utils.DefaultHttpPort); err != nil {
			return nil, err
		}
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, endpoint.Network, endpoint.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}

	log.Debugf("Connected to %s", uri)

	if endpoint.Scheme == "http" {
		if conn, err = upgrade(conn); err != nil {
			return nil, err
		}
	}

	timeout := DefaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	return connect(conn, secret, timeout)
}

// Requests the protocol endpoint of the dispatcher HTTP server.
// The server hijacks the connection without sending an HTTP response,
// unless the endpoint is unavailable.
func upgrade(conn net.Conn) (net.Conn, error) {
	request := fmt.Sprintf("GET %s HTTP/1.0\r\n\r\n", dispatcher.ClientPath)
	if _, err := conn.Write([]byte(request)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}

	reader := bufio.NewReader(conn)
	peek, err := reader.Peek(5)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}

	if string(peek) == "HTTP/" {
		response, err := http.ReadResponse(reader, nil)
		conn.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
		}
		return nil, fmt.Errorf("%w: %s", utils.ErrConnectionLost, response.Status)
	}

	return &bufferedConn{Conn: conn, reader: reader}, nil
}

type bufferedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (c *bufferedConn) Read(data []byte) (int, error) {
	return c.reader.Read(data)
}

// Closes the connection.
func (s *Session) Close() error {
	return s.rp.Close()
}

// Blocks until the connection has been closed.
func (s *Session) Wait() {
	s.rp.Wait()
}

// Closed when the connection has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.rp.Done()
}

func (s *Session) Alive() bool {
	return s.rp.Alive()
}
