package main

import (
	"context"
	"net"

	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
	"google.golang.org/grpc"
)

// Sets up a gRPC server on a specific listening address and runs it until ctx is cancelled.
func serveGrpc(ctx context.Context, admin dispatcher.Administrable, address string) error {
	endpoint, err := utils.ParseEndpoint(address, utils.DefaultGrpcPort)
	if err != nil {
		return err
	}

	socket, err := listen(endpoint)
	if err != nil {
		return err
	}

	// Setup gRPC options
	opts := config.GRPCOptions.ToServerOptions()

	// Setup gRPC server
	server := grpc.NewServer(opts...)
	dispatcher.RegisterAdministrationServer(server, dispatcher.NewAdminService(admin))

	stop := context.AfterFunc(ctx, server.GracefulStop)
	defer stop()

	log.Info("Serving gRPC on", endpoint.Scheme, socket.Addr())
	if err := server.Serve(socket); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func listen(endpoint *utils.Endpoint) (net.Listener, error) {
	socket, err := net.Listen(endpoint.Network, endpoint.Address)
	if err != nil {
		return nil, err
	}

	if endpoint.Network == "unix" {
		// Remove the socket file when done
		socket.(*net.UnixListener).SetUnlinkOnClose(true)
	}

	return socket, nil
}
