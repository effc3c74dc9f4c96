package configuration

import (
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/srand/multinode/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestObjectStoreConfigValidate(t *testing.T) {
	valid := ObjectStoreConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "a",
		SecretKey: "b",
		Bucket:    "configurations",
	}
	assert.NoError(t, valid.Validate())

	invalid := valid
	invalid.Endpoint = "http://localhost:9000"
	assert.Error(t, invalid.Validate())

	invalid = valid
	invalid.Bucket = " "
	assert.Error(t, invalid.Validate())
}

func TestNewObjectLibrary(t *testing.T) {
	library, err := NewObjectLibrary(&ObjectStoreConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "a",
		SecretKey: "b",
		Bucket:    "configurations",
		Prefix:    "multinode",
	})
	assert.NoError(t, err)

	hash := utils.Sha256([]byte("A"))
	assert.Equal(t, "multinode/sha256/"+hash.Hex(), library.key(hash))
}

func TestObjectErrorMapping(t *testing.T) {
	hash := utils.Sha256([]byte("A"))

	err := objectError(hash, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	other := errors.New("connection refused")
	assert.Equal(t, other, objectError(hash, other))
}
