package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGrpcError(t *testing.T) {
	testData := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("%w: configuration", ErrNotFound), codes.NotFound},
		{ErrBadRequest, codes.InvalidArgument},
		{fmt.Errorf("%w: digest", ErrParse), codes.InvalidArgument},
		{ErrConnectionLost, codes.Unavailable},
		{ErrShutdown, codes.Unavailable},
		{ErrAuthentication, codes.Unauthenticated},
		{fmt.Errorf("%w: json", ErrSerialization), codes.Internal},
	}

	for _, test := range testData {
		assert.Equal(t, test.code, status.Code(GrpcError(test.err)), test.err.Error())
	}

	plain := errors.New("plain")
	assert.Equal(t, plain, GrpcError(plain))
}
