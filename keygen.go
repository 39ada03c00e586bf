// keygen.go - Key material provisioning
//
// To the extent possible under law, Yawning Angel has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package uvmac

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/chacha20"
)

// SeedSize is the seed length for DeriveKeyMaterial in bytes.
const SeedSize = chacha20.KeySize

// keygenNonce domain-separates the key derivation keystream.
var keygenNonce = []byte("uvmac keygen")

// GenerateHashKey returns KeyBytes of fresh universal hashing key material
// for p, drawn from rng (crypto/rand.Reader when nil). The material is
// verified to complete the key schedule; in the astronomically unlikely
// event that l3 rejections exhaust it, a fresh key is drawn.
func GenerateHashKey(p Params, rng io.Reader) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.Reader
	}

	scratch, _ := New(p)
	defer scratch.Wipe()
	for {
		key := make([]byte, p.KeyBytes())
		if _, err := io.ReadFull(rng, key); err != nil {
			burnBytes(key)
			return nil, err
		}
		if err := scratch.SetKey(key); err == nil {
			return key, nil
		}
		burnBytes(key)
	}
}

// DeriveKeyMaterial expands a SeedSize-byte seed into hashKeyLen bytes of
// universal hashing key followed by padKeyLen bytes of pad key, using the
// ChaCha20 keystream.
//
// Derived pad key is computationally, not unconditionally, secure: it is
// intended for interoperability testing and simulation. Production pad key
// streams must come from a source of true randomness shared out of band.
func DeriveKeyMaterial(seed []byte, hashKeyLen, padKeyLen int) (hashKey, padKey []byte, err error) {
	if len(seed) != SeedSize {
		return nil, nil, ErrInvalidSeedSize
	}

	c, err := chacha20.NewUnauthenticatedCipher(seed, keygenNonce)
	if err != nil {
		return nil, nil, err
	}
	buf := make([]byte, hashKeyLen+padKeyLen)
	c.XORKeyStream(buf, buf)
	return buf[:hashKeyLen], buf[hashKeyLen:], nil
}

func burnUint64s(b []uint64) {
	for i := range b {
		b[i] = 0
	}
}

func burnBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
