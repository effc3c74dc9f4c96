package configuration

import (
	"github.com/srand/multinode/pkg/utils"
)

// Storage of configurations keyed by their hash.
type Library interface {
	// Stores a configuration. Adding a configuration twice has no effect.
	Add(*Configuration) error

	// Returns the configuration with the given hash.
	// Fails with utils.ErrNotFound if there is no such configuration.
	Get(utils.Digest) (*Configuration, error)

	// Removes the configuration with the given hash.
	// Fails with utils.ErrNotFound if there is no such configuration.
	Remove(utils.Digest) error
}
