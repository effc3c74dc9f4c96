package protocol

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
)

type CommandCode byte

const (
	Response            CommandCode = 'R'
	AddConfiguration    CommandCode = 'A'
	GetConfiguration    CommandCode = 'G'
	RemoveConfiguration CommandCode = 'D'
	WorkerTask          CommandCode = 'W'
	AddWorker           CommandCode = 'C'
	DispatchTask        CommandCode = 'T'
)

func (c CommandCode) String() string {
	switch c {
	case Response:
		return "Response"
	case AddConfiguration:
		return "AddConfiguration"
	case GetConfiguration:
		return "GetConfiguration"
	case RemoveConfiguration:
		return "RemoveConfiguration"
	case WorkerTask:
		return "WorkerTask"
	case AddWorker:
		return "AddWorker"
	case DispatchTask:
		return "DispatchTask"
	default:
		return string([]byte{byte(c)})
	}
}

// Size of the frame header: command, sequence and payload length.
const HeaderSize = 9

const DefaultMaxPayload = 1 << 30

var maxPayload atomic.Int64

func init() {
	maxPayload.Store(DefaultMaxPayload)
}

// Sets the largest payload accepted by Receive.
// Frames declaring a larger payload are treated as a closed connection.
func SetMaxPayload(size int64) {
	if size <= 0 {
		size = DefaultMaxPayload
	}
	maxPayload.Store(size)
}

type Message struct {
	Command  CommandCode
	Sequence uint32
	Payload  []byte
}

// Framing of messages on a byte stream.
//
// Each frame is [1-byte command][4-byte sequence][4-byte length][payload],
// all integers in network byte order. Sends are serialized so that frames
// from concurrent senders never interleave. Receive must only be called
// from a single goroutine.
type Protocol struct {
	conn   io.ReadWriteCloser
	reader *bufio.Reader

	mu     sync.Mutex
	writer *bufio.Writer
}

func NewProtocol(conn io.ReadWriteCloser) *Protocol {
	return &Protocol{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}
}

func (p *Protocol) Send(command CommandCode, sequence uint32, payload []byte) error {
	var header [HeaderSize]byte
	header[0] = byte(command)
	binary.BigEndian.PutUint32(header[1:5], sequence)
	binary.BigEndian.PutUint32(header[5:9], uint32(len(payload)))

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.writer.Write(header[:]); err != nil {
		return err
	}
	if _, err := p.writer.Write(payload); err != nil {
		return err
	}
	return p.writer.Flush()
}

// Blocks until a complete frame has been read.
// Returns nil if the stream was closed or ended in the middle of a frame.
func (p *Protocol) Receive() *Message {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(p.reader, header[:]); err != nil {
		return nil
	}

	length := binary.BigEndian.Uint32(header[5:9])
	if int64(length) > maxPayload.Load() {
		return nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(p.reader, payload); err != nil {
		return nil
	}

	return &Message{
		Command:  CommandCode(header[0]),
		Sequence: binary.BigEndian.Uint32(header[1:5]),
		Payload:  payload,
	}
}

func (p *Protocol) Close() error {
	return p.conn.Close()
}
