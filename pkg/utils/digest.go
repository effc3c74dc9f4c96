package utils

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

const (
	Sha1Algorithm   = HashAlgorithm("sha1")
	Sha256Algorithm = HashAlgorithm("sha256")
)

type HashAlgorithm string

// Returns a new hash for the algorithm.
func (a HashAlgorithm) New() (hash.Hash, error) {
	switch a {
	case Sha1Algorithm:
		return sha1.New(), nil
	case Sha256Algorithm:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported digest algorithm: %s", ErrBadRequest, a)
	}
}

// A content digest, rendered as <algorithm>:<hex>.
type Digest struct {
	alg HashAlgorithm
	hex string
}

func ParseDigest(digest string) (Digest, error) {
	alg, data, found := strings.Cut(digest, ":")
	if !found {
		data = alg
		alg = string(Sha256Algorithm)
	}

	bytes, err := hex.DecodeString(data)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	switch HashAlgorithm(alg) {
	case Sha1Algorithm:
		if len(bytes) != sha1.Size {
			return Digest{}, fmt.Errorf("%w: invalid length of sha1 hex string: %d", ErrParse, len(bytes))
		}
		return NewDigest(Sha1Algorithm, data), nil
	case Sha256Algorithm:
		if len(bytes) != sha256.Size {
			return Digest{}, fmt.Errorf("%w: invalid length of sha256 hex string: %d", ErrParse, len(bytes))
		}
		return NewDigest(Sha256Algorithm, data), nil
	default:
		return Digest{}, fmt.Errorf("%w: invalid hash algorithm: %s", ErrParse, alg)
	}
}

func NewDigest(algorithm HashAlgorithm, hex string) Digest {
	return Digest{alg: algorithm, hex: strings.ToLower(hex)}
}

// Computes the digest of a stream with the given algorithm.
func ComputeDigest(algorithm HashAlgorithm, reader io.Reader) (Digest, error) {
	h, err := algorithm.New()
	if err != nil {
		return Digest{}, err
	}
	if _, err := io.Copy(h, reader); err != nil {
		return Digest{}, err
	}
	return NewDigest(algorithm, hex.EncodeToString(h.Sum(nil))), nil
}

// Computes the sha256 digest of a byte slice.
func Sha256(data []byte) Digest {
	sum := sha256.Sum256(data)
	return NewDigest(Sha256Algorithm, hex.EncodeToString(sum[:]))
}

func (d Digest) Algorithm() HashAlgorithm {
	return d.alg
}

func (d Digest) Hex() string {
	return d.hex
}

func (d Digest) String() string {
	return fmt.Sprintf("%s:%s", d.alg, d.hex)
}
