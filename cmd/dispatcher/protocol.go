package main

import (
	"context"
	"fmt"

	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/handshake"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

// Accepts protocol connections on a specific listening address until ctx is cancelled.
func serveProtocol(ctx context.Context, handler dispatcher.ConnectionHandler, address string) error {
	endpoint, err := utils.ParseEndpoint(address, utils.DefaultProtocolPort)
	if err != nil {
		return err
	}

	if endpoint.Scheme == "http" {
		return fmt.Errorf("%w: use listen_http for HTTP addresses: %s", utils.ErrBadRequest, address)
	}

	socket, err := listen(endpoint)
	if err != nil {
		return err
	}

	log.Info("Listening on", endpoint.Scheme, socket.Addr())
	return handshake.Serve(ctx, socket, handler)
}
