package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCBORMaps(t *testing.T) {
	data, err := Marshal(map[string]interface{}{"n": 42, "s": "x"})
	assert.NoError(t, err)

	var out interface{}
	assert.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, map[string]interface{}{"n": uint64(42), "s": "x"}, out)
}

func TestCBORErrors(t *testing.T) {
	_, err := Marshal(make(chan int))
	assert.ErrorIs(t, err, ErrSerialization)

	var out string
	assert.ErrorIs(t, Unmarshal([]byte{0xff, 0x00}, &out), ErrParse)
}
