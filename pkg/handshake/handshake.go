package handshake

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/srand/multinode/pkg/utils"
)

const (
	// Size of the challenge sent by the acceptor.
	ChallengeSize = 32

	// Size of the response digest.
	ResponseSize = sha256.Size

	DefaultTimeout = 10 * time.Second
)

var (
	replyAccepted = []byte("OK")
	replyRejected = []byte("NO")
)

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Bounds the handshake on streams that support deadlines.
// The returned function clears the deadline.
func setDeadline(conn io.ReadWriteCloser, timeout time.Duration) func() {
	d, ok := conn.(deadliner)
	if !ok || timeout <= 0 {
		return func() {}
	}

	d.SetDeadline(time.Now().Add(timeout))
	return func() {
		d.SetDeadline(time.Time{})
	}
}

func newChallenge() ([]byte, error) {
	challenge := make([]byte, ChallengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

func respond(secret, challenge []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(challenge)
	return mac.Sum(nil)
}

// Acceptor side of the challenge/response exchange.
func accept(conn io.ReadWriteCloser, secret []byte, timeout time.Duration) error {
	reset := setDeadline(conn, timeout)
	defer reset()

	challenge, err := newChallenge()
	if err != nil {
		return err
	}

	if _, err := conn.Write(challenge); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}

	response := make([]byte, ResponseSize)
	if _, err := io.ReadFull(conn, response); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}

	if !hmac.Equal(response, respond(secret, challenge)) {
		conn.Write(replyRejected)
		return utils.ErrAuthentication
	}

	if _, err := conn.Write(replyAccepted); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}
	return nil
}

// Connector side of the challenge/response exchange.
func authenticate(conn io.ReadWriteCloser, secret []byte, timeout time.Duration) error {
	reset := setDeadline(conn, timeout)
	defer reset()

	challenge := make([]byte, ChallengeSize)
	if _, err := io.ReadFull(conn, challenge); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}

	if _, err := conn.Write(respond(secret, challenge)); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}

	reply := make([]byte, len(replyAccepted))
	if _, err := io.ReadFull(conn, reply); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrConnectionLost, err)
	}

	if !hmac.Equal(reply, replyAccepted) {
		return fmt.Errorf("%w: %w", utils.ErrConnectionLost, utils.ErrAuthentication)
	}
	return nil
}
