package utils

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error

	cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}{}),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encodes a value in deterministic CBOR.
// Values that cannot be represented are reported as ErrSerialization.
func Marshal(v interface{}) ([]byte, error) {
	data, err := cborEnc.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// Decodes CBOR data into v. Undecodable data is reported as ErrParse.
func Unmarshal(data []byte, v interface{}) error {
	if err := cborDec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}
