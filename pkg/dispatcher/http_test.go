package dispatcher

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct{}

// Replies with the first line received, upper cased.
func (echoHandler) NewConnection(conn io.ReadWriteCloser) {
	defer conn.Close()
	buf := make([]byte, 5)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return
	}
	conn.Write([]byte(strings.ToUpper(string(buf))))
}

func startHttpServer(t *testing.T, stats StatisticsProvider, handler ConnectionHandler) *httptest.Server {
	e := echo.New()
	e.HideBanner = true
	NewHttpHandler(stats, handler, e)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server
}

func TestHttpData(t *testing.T) {
	d := startDispatcher(t)
	require.NoError(t, d.AddWorker(&doubleWorker{}, 2))

	server := startHttpServer(t, d, nil)

	resp, err := http.Get(server.URL + "/data")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats Statistics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Len(t, stats.Workers, 1)
	assert.Equal(t, 2, stats.Workers[0].Slots)
	assert.Equal(t, "double", stats.Workers[0].Type)
}

func TestHttpMetrics(t *testing.T) {
	d := startDispatcher(t)
	require.NoError(t, d.AddWorker(&doubleWorker{}, 3))

	server := startHttpServer(t, d, nil)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "multinode_dispatcher_workers 1\n")
	assert.Contains(t, string(body), "multinode_dispatcher_slots 3\n")
	assert.Contains(t, string(body), "multinode_dispatcher_tasks_waiting 0\n")
}

func TestHttpClientUpgrade(t *testing.T) {
	d := startDispatcher(t)
	server := startHttpServer(t, d, echoHandler{})

	conn, err := net.Dial("tcp", server.Listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET " + ClientPath + " HTTP/1.0\r\n\r\nhello"))
	require.NoError(t, err)

	reply := make([]byte, 5)
	_, err = io.ReadFull(conn, reply)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(reply))
}

func TestHttpClientUpgradeDisabled(t *testing.T) {
	d := startDispatcher(t)
	server := startHttpServer(t, d, nil)

	resp, err := http.Get(server.URL + ClientPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
