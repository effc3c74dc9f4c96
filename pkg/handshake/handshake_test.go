package handshake

import (
	"context"
	"io"
	"net"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/srand/multinode/pkg/configuration"
	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("secret")

type doubleWorker struct{}

func (doubleWorker) Execute(_ context.Context, _ utils.Digest, task []byte) ([]byte, error) {
	return append(append([]byte{}, task...), task...), nil
}

func (doubleWorker) Info() dispatcher.WorkerInfo {
	return dispatcher.WorkerInfo{Hostname: "double"}
}

type testService struct {
	dispatcher dispatcher.Dispatcher
	library    configuration.Library
	handler    *ConnectionHandler
}

func newTestService(t *testing.T) *testService {
	d := dispatcher.NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	library := configuration.NewMemoryLibrary()
	return &testService{
		dispatcher: d,
		library:    library,
		handler:    NewConnectionHandler(d, library, secret),
	}
}

func (s *testService) listen(t *testing.T, network, address string) string {
	listener, err := net.Listen(network, address)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- Serve(ctx, listener, s.handler)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return listener.Addr().String()
}

func dial(t *testing.T, uri string, key []byte) (*Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session, err := Dial(ctx, uri, key)
	if err == nil {
		t.Cleanup(func() { session.Close() })
	}
	return session, err
}

// Registers a worker and a configuration through the session and runs a task.
func exercise(t *testing.T, s *testService, session *Session) {
	c, err := configuration.SingleFile("test", "file.txt", []byte("contents"))
	require.NoError(t, err)
	require.NoError(t, session.Library.Add(c))

	require.NoError(t, session.Dispatcher.AddWorker(doubleWorker{}, 1))

	future, err := session.Dispatcher.Submit(c.Hash(), []byte("ab"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := future.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abab", string(result))

	stored, err := s.library.Get(c.Hash())
	require.NoError(t, err)
	assert.Equal(t, "test", stored.Name)
}

func TestHandshakeTcp(t *testing.T) {
	s := newTestService(t)
	address := s.listen(t, "tcp", "127.0.0.1:0")

	session, err := dial(t, "tcp://"+address, secret)
	require.NoError(t, err)
	assert.True(t, session.Alive())

	exercise(t, s, session)
}

func TestHandshakeUnix(t *testing.T) {
	s := newTestService(t)
	path := filepath.Join(t.TempDir(), "multinode.sock")
	s.listen(t, "unix", path)

	session, err := dial(t, "unix://"+path, secret)
	require.NoError(t, err)

	exercise(t, s, session)
}

func TestHandshakeHttp(t *testing.T) {
	s := newTestService(t)

	e := echo.New()
	dispatcher.NewHttpHandler(s.dispatcher.(dispatcher.StatisticsProvider), s.handler, e)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	session, err := dial(t, "http://"+server.Listener.Addr().String(), secret)
	require.NoError(t, err)

	exercise(t, s, session)
}

func TestHandshakeHttpUnavailable(t *testing.T) {
	s := newTestService(t)

	e := echo.New()
	dispatcher.NewHttpHandler(s.dispatcher.(dispatcher.StatisticsProvider), nil, e)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	_, err := dial(t, "http://"+server.Listener.Addr().String(), secret)
	assert.ErrorIs(t, err, utils.ErrConnectionLost)
}

func TestHandshakeRejected(t *testing.T) {
	s := newTestService(t)
	address := s.listen(t, "tcp", "127.0.0.1:0")

	_, err := dial(t, "tcp://"+address, []byte("wrong"))
	assert.ErrorIs(t, err, utils.ErrConnectionLost)
	assert.ErrorIs(t, err, utils.ErrAuthentication)
}

func TestHandshakeTimeout(t *testing.T) {
	s := newTestService(t)
	s.handler.Timeout = 50 * time.Millisecond

	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		s.handler.NewConnection(server)
		close(done)
	}()

	challenge := make([]byte, ChallengeSize)
	_, err := io.ReadFull(client, challenge)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handshake did not time out")
	}

	// The acceptor closed the stream.
	_, err = client.Read(challenge)
	assert.Error(t, err)
}

func TestConnectRejectsGarbage(t *testing.T) {
	client, server := net.Pipe()

	go func() {
		server.Write(make([]byte, ChallengeSize))
		io.ReadFull(server, make([]byte, ResponseSize))
		server.Write([]byte("??"))
		server.Close()
	}()

	_, err := Connect(client, secret)
	assert.ErrorIs(t, err, utils.ErrConnectionLost)
}

func TestResponseDependsOnSecret(t *testing.T) {
	challenge, err := newChallenge()
	require.NoError(t, err)
	assert.Len(t, challenge, ChallengeSize)
	assert.Len(t, respond(secret, challenge), ResponseSize)
	assert.Equal(t, respond(secret, challenge), respond(secret, challenge))
	assert.NotEqual(t, respond(secret, challenge), respond([]byte("other"), challenge))
}
