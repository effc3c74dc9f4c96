package utils

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrAuthentication  = fmt.Errorf("Authentication failed")
	ErrBadRequest      = fmt.Errorf("Bad request")
	ErrConnectionLost  = fmt.Errorf("Connection lost")
	ErrNotFound        = fmt.Errorf("Not found")
	ErrParse           = fmt.Errorf("Parse error")
	ErrProtocol        = fmt.Errorf("Protocol violation")
	ErrSerialization   = fmt.Errorf("Serialization failure")
	ErrShutdown        = fmt.Errorf("Shutting down")
	ErrAlreadyResolved = fmt.Errorf("Future already resolved")
)

type DetailedError interface {
	error
	Details() string
}

// Convert errors to errors with grpc status codes
func GrpcError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrParse):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrConnectionLost), errors.Is(err, ErrShutdown):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrAuthentication):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrSerialization), errors.Is(err, ErrProtocol):
		return status.Error(codes.Internal, err.Error())
	}
	return err
}
