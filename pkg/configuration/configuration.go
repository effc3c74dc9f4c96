package configuration

import (
	"github.com/srand/multinode/pkg/utils"
)

// A content addressed bundle of files that tasks run against.
//
// The hash is computed over the contents once, when the configuration
// is constructed or decoded, and identifies the configuration everywhere.
// Two configurations with identical contents are the same configuration.
type Configuration struct {
	// Name of the configuration, informational only.
	Name string
	// Bundle contents, a zstd compressed tar archive.
	Contents []byte

	hash utils.Digest
}

func New(name string, contents []byte) *Configuration {
	return &Configuration{
		Name:     name,
		Contents: contents,
		hash:     utils.Sha256(contents),
	}
}

func (c *Configuration) Hash() utils.Digest {
	return c.hash
}

type wireConfiguration struct {
	Name     string `cbor:"1,keyasint"`
	Contents []byte `cbor:"2,keyasint"`
}

func (c *Configuration) MarshalCBOR() ([]byte, error) {
	return utils.Marshal(wireConfiguration{Name: c.Name, Contents: c.Contents})
}

func (c *Configuration) UnmarshalCBOR(data []byte) error {
	var wire wireConfiguration
	if err := utils.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = *New(wire.Name, wire.Contents)
	return nil
}

// Encodes a configuration for transfer.
func Encode(c *Configuration) ([]byte, error) {
	return utils.Marshal(c)
}

// Decodes a transferred configuration. The hash is computed from the received contents.
func Decode(data []byte) (*Configuration, error) {
	c := &Configuration{}
	if err := utils.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
