package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

var (
	ErrInvalidParams = errors.New("crypto: invalid DH parameters")
	ErrKeyRange      = errors.New("crypto: invalid private key range")
)

// Params are the public group parameters shared by every peer.
type Params struct {
	Prime     uint64 `json:"prime"`
	Generator uint64 `json:"generator"`
}

// DefaultParams are deliberately tiny so the relay can brute-force them.
var DefaultParams = Params{Prime: 23, Generator: 5}

func (p Params) Validate() error {
	if p.Prime < 3 {
		return fmt.Errorf("%w: prime %d < 3", ErrInvalidParams, p.Prime)
	}
	if p.Generator < 2 || p.Generator >= p.Prime {
		return fmt.Errorf("%w: generator %d not in [2, %d]", ErrInvalidParams, p.Generator, p.Prime-1)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("p=%d g=%d", p.Prime, p.Generator)
}

// KeyRange bounds private key sampling (inclusive).
type KeyRange struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
}

var DefaultKeyRange = KeyRange{Min: 2, Max: 20}

// Validate checks the range against the group: 1 <= Min <= Max < Prime.
func (kr KeyRange) Validate(p Params) error {
	if kr.Min < 1 || kr.Min > kr.Max {
		return fmt.Errorf("%w: [%d, %d]", ErrKeyRange, kr.Min, kr.Max)
	}
	if kr.Max >= p.Prime {
		return fmt.Errorf("%w: max %d must be below prime %d", ErrKeyRange, kr.Max, p.Prime)
	}
	return nil
}

// KeyPair is a peer's private exponent and the derived public value.
type KeyPair struct {
	PrivateKey uint64
	PublicKey  uint64
}

// GeneratePrivateKey samples uniformly from [kr.Min, kr.Max].
// A nil reader means crypto/rand.Reader.
func GeneratePrivateKey(r io.Reader, kr KeyRange) (uint64, error) {
	if kr.Min > kr.Max {
		return 0, fmt.Errorf("%w: [%d, %d]", ErrKeyRange, kr.Min, kr.Max)
	}
	if r == nil {
		r = rand.Reader
	}
	span := new(big.Int).SetUint64(kr.Max - kr.Min)
	span.Add(span, big.NewInt(1))
	n, err := rand.Int(r, span)
	if err != nil {
		return 0, fmt.Errorf("crypto: sample private key: %w", err)
	}
	return kr.Min + n.Uint64(), nil
}

func ComputePublicKey(g, privateKey, p uint64) uint64 {
	return ModPow(g, privateKey, p)
}

func ComputeSharedSecret(otherPublicKey, privateKey, p uint64) uint64 {
	return ModPow(otherPublicKey, privateKey, p)
}

// NewKeyPair derives the public value for an existing private key.
func NewKeyPair(params Params, privateKey uint64) KeyPair {
	return KeyPair{
		PrivateKey: privateKey,
		PublicKey:  ComputePublicKey(params.Generator, privateKey, params.Prime),
	}
}

// GenerateKeyPair samples a private key from kr and derives its public value.
func GenerateKeyPair(r io.Reader, params Params, kr KeyRange) (KeyPair, error) {
	priv, err := GeneratePrivateKey(r, kr)
	if err != nil {
		return KeyPair{}, err
	}
	return NewKeyPair(params, priv), nil
}
