package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferConn struct {
	io.Reader
	io.Writer
}

func (bufferConn) Close() error {
	return nil
}

func newBufferConn(data []byte) *bufferConn {
	return &bufferConn{Reader: bytes.NewReader(data), Writer: io.Discard}
}

func header(command CommandCode, sequence, length uint32) []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = byte(command)
	binary.BigEndian.PutUint32(buf[1:5], sequence)
	binary.BigEndian.PutUint32(buf[5:9], length)
	return buf
}

func TestProtocolRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	sender := NewProtocol(a)
	receiver := NewProtocol(b)
	defer sender.Close()
	defer receiver.Close()

	for _, size := range []int{0, 1, 5, 4096, 65537, 1 << 20} {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i * 7)
		}

		errs := make(chan error, 1)
		go func() {
			errs <- sender.Send('X', uint32(size), payload)
		}()

		msg := receiver.Receive()
		require.NotNil(t, msg, "size %d", size)
		assert.Equal(t, CommandCode('X'), msg.Command)
		assert.Equal(t, uint32(size), msg.Sequence)
		assert.Equal(t, payload, msg.Payload)
		assert.NoError(t, <-errs)
	}
}

func TestProtocolFrameEncoding(t *testing.T) {
	out := bytes.Buffer{}
	p := NewProtocol(&bufferConn{Reader: &bytes.Buffer{}, Writer: &out})

	assert.NoError(t, p.Send(DispatchTask, 24, []byte("alpha")))
	assert.Equal(t, append(header(DispatchTask, 24, 5), "alpha"...), out.Bytes())
}

func TestProtocolEmpty(t *testing.T) {
	p := NewProtocol(newBufferConn(nil))
	assert.Nil(t, p.Receive())
}

func TestProtocolTruncatedHeader(t *testing.T) {
	p := NewProtocol(newBufferConn(header('X', 4, 2)[:5]))
	assert.Nil(t, p.Receive())
}

func TestProtocolTruncatedPayload(t *testing.T) {
	data := append(header('X', 4, 2), '1')
	p := NewProtocol(newBufferConn(data))
	assert.Nil(t, p.Receive())
}

func TestProtocolOversizedPayload(t *testing.T) {
	SetMaxPayload(16)
	defer SetMaxPayload(0)

	data := append(header('X', 4, 17), make([]byte, 17)...)
	p := NewProtocol(newBufferConn(data))
	assert.Nil(t, p.Receive())
}

func TestProtocolConcurrentSend(t *testing.T) {
	a, b := net.Pipe()
	sender := NewProtocol(a)
	receiver := NewProtocol(b)
	defer receiver.Close()

	const senders = 8
	const messages = 50

	wg := sync.WaitGroup{}
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			payload := bytes.Repeat([]byte{byte(s)}, 1000+s)
			for i := 0; i < messages; i++ {
				assert.NoError(t, sender.Send(CommandCode('a'+s), uint32(i), payload))
			}
		}(s)
	}
	go func() {
		wg.Wait()
		sender.Close()
	}()

	counts := map[CommandCode]int{}
	for {
		msg := receiver.Receive()
		if msg == nil {
			break
		}
		s := int(msg.Command - 'a')
		assert.Equal(t, bytes.Repeat([]byte{byte(s)}, 1000+s), msg.Payload)
		assert.Equal(t, uint32(counts[msg.Command]), msg.Sequence)
		counts[msg.Command]++
	}

	for s := 0; s < senders; s++ {
		assert.Equal(t, messages, counts[CommandCode('a'+s)])
	}
}

type failingConn struct {
	bufferConn
}

func (failingConn) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestProtocolSendError(t *testing.T) {
	p := NewProtocol(&failingConn{})
	assert.Error(t, p.Send('X', 0, []byte("milk")))
}
