package main

import (
	"context"
	"time"

	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
	"google.golang.org/grpc"
)

func NewAdminClient() (*dispatcher.AdministrationClient, func()) {
	grpcHost, err := utils.ParseGrpcUrl(configData.GrpcUri)
	if err != nil {
		log.Fatal(err)
	}

	conn, err := grpc.NewClient(grpcHost, configData.GRPCOptions.ToDialOptions()...)
	if err != nil {
		log.Fatal(err)
	}

	return dispatcher.NewAdministrationClient(conn), func() { conn.Close() }
}

func DefaultDeadlineContext() (context.Context, func()) {
	return context.WithDeadline(context.Background(), time.Now().Add(time.Second*30))
}
