package synth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// Entropy supplies the non-deterministic parts of a bundle.
type Entropy interface {
	NewUUID() (string, error)
	Digits(n int) (string, error)
}

// CryptoEntropy draws from crypto/rand.
type CryptoEntropy struct{}

func (CryptoEntropy) NewUUID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("new uuid: %w", err)
	}
	return u.String(), nil
}

var ten = big.NewInt(10)

func (CryptoEntropy) Digits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("random digit: %w", err)
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}
