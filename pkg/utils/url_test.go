package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEndpoint(t *testing.T) {
	testData := []struct {
		input   string
		scheme  string
		network string
		address string
	}{
		{"tcp://dispatcher", "tcp", "tcp", "dispatcher:12456"},
		{"tcp://dispatcher:1234", "tcp", "tcp", "dispatcher:1234"},
		{"tcp://:1234", "tcp", "tcp", ":1234"},
		{"tcp6://[::1]:1234", "tcp6", "tcp6", "[::1]:1234"},
		{"http://dispatcher", "http", "tcp", "dispatcher:12456"},
		{"unix:///var/run/multinode.sock", "unix", "unix", "/var/run/multinode.sock"},
	}

	for _, test := range testData {
		endpoint, err := ParseEndpoint(test.input, DefaultProtocolPort)
		if assert.NoError(t, err, test.input) {
			assert.Equal(t, test.scheme, endpoint.Scheme, test.input)
			assert.Equal(t, test.network, endpoint.Network, test.input)
			assert.Equal(t, test.address, endpoint.Address, test.input)
		}
	}
}

func TestParseEndpointFail(t *testing.T) {
	_, err := ParseEndpoint("ftp://dispatcher", DefaultProtocolPort)
	assert.ErrorIs(t, err, ErrParse)

	_, err = ParseEndpoint("unix://", DefaultProtocolPort)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseGrpcUrl(t *testing.T) {
	host, err := ParseGrpcUrl("tcp://dispatcher")
	assert.NoError(t, err)
	assert.Equal(t, "dispatcher:9090", host)

	_, err = ParseGrpcUrl("unix:///tmp/sock")
	assert.Error(t, err)

	host, err = ParseHttpUrl("tcp://:80")
	assert.NoError(t, err)
	assert.Equal(t, ":80", host)
}
