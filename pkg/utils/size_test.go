package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSize(t *testing.T) {
	testData := []struct {
		input string
		value int64
	}{
		{"0", 0},
		{"0 KB", 0},
		{" 17 ", 17},
		{"512B", 512},

		{"4KiB", 4 * 1024},
		{"64MiB", 64 * 1024 * 1024},
		{"1GiB", 1024 * 1024 * 1024},
		{"2TiB", 2 * 1024 * 1024 * 1024 * 1024},

		{"4K", 4 * 1000},
		{"64MB", 64 * 1000 * 1000},
		{"1 G", 1000 * 1000 * 1000},
	}

	for _, data := range testData {
		size, err := ParseSize(data.input)
		assert.NoError(t, err, data.input)
		assert.Equal(t, data.value, size, data.input)
	}
}

func TestParseSizeFail(t *testing.T) {
	for _, input := range []string{"", "MiB", "-1", "12 bytes", "0x10", "16EiB"} {
		_, err := ParseSize(input)
		assert.ErrorIs(t, err, ErrParse, input)
	}
}

func TestHumanByteSize(t *testing.T) {
	testData := []struct {
		value string
		input int64
	}{
		{"0B", 0},
		{"1023B", 1023},
		{"4KiB", 4 * 1024},
		{"64.0MiB", 64 * 1024 * 1024},
		{"1.00GiB", 1024 * 1024 * 1024},
	}

	for _, data := range testData {
		assert.Equal(t, data.value, HumanByteSize(data.input))
	}
}
