package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

var ErrUnseal = errors.New("unseal: authentication failed")

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	SaltLen uint32
}

var defaultParams = Argon2Params{
	Time:    1,
	Memory:  32 * 1024,
	Threads: 2,
	SaltLen: 16,
}

const nonceLen = 24

// Sealer encrypts small blobs with a passphrase-derived key.
// Layout: salt | nonce | secretbox(payload).
type Sealer struct {
	passphrase []byte
	params     Argon2Params
}

func NewSealer(passphrase string) *Sealer {
	return NewSealerWithParams(passphrase, defaultParams)
}

func NewSealerWithParams(passphrase string, params Argon2Params) *Sealer {
	return &Sealer{passphrase: []byte(passphrase), params: params}
}

func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	salt := make([]byte, s.params.SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := s.deriveKey(salt)
	out := make([]byte, 0, len(salt)+nonceLen+len(plain)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, &key), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	saltLen := int(s.params.SaltLen)
	if len(sealed) < saltLen+nonceLen+secretbox.Overhead {
		return nil, fmt.Errorf("unseal: blob too short")
	}
	salt := sealed[:saltLen]
	var nonce [nonceLen]byte
	copy(nonce[:], sealed[saltLen:saltLen+nonceLen])

	key := s.deriveKey(salt)
	plain, ok := secretbox.Open(nil, sealed[saltLen+nonceLen:], &nonce, &key)
	if !ok {
		return nil, ErrUnseal
	}
	return plain, nil
}

func (s *Sealer) deriveKey(salt []byte) [32]byte {
	var key [32]byte
	copy(key[:], argon2.IDKey(s.passphrase, salt, s.params.Time, s.params.Memory, s.params.Threads, 32))
	return key
}
