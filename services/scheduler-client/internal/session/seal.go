package session

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 24
)

// sealer encrypts session documents with a key derived from a passphrase.
// The last salt and key are kept, so scrypt runs once per salt rather than
// on every Load or Save.
type sealer struct {
	passphrase []byte
	derive     func(passphrase, salt []byte) (*[32]byte, error)

	mu   sync.Mutex
	salt []byte
	key  *[32]byte
}

func newSealer(passphrase []byte) *sealer {
	return &sealer{passphrase: passphrase, derive: deriveKey}
}

// keyFor returns the key for salt, deriving it only when salt differs from
// the cached one.
func (s *sealer) keyFor(salt []byte) (*[32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil && bytes.Equal(s.salt, salt) {
		return s.key, nil
	}
	key, err := s.derive(s.passphrase, salt)
	if err != nil {
		return nil, err
	}
	s.salt = append([]byte(nil), salt...)
	s.key = key
	return key, nil
}

// current returns the cached salt and key, creating a fresh pair when
// nothing has been derived yet.
func (s *sealer) current() ([]byte, *[32]byte, error) {
	s.mu.Lock()
	salt, key := s.salt, s.key
	s.mu.Unlock()
	if key != nil {
		return salt, key, nil
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	key, err := s.keyFor(salt)
	return salt, key, err
}

// seal returns base64(salt || nonce || box).
func (s *sealer) seal(plaintext []byte) (string, error) {
	salt, key, err := s.current()
	if err != nil {
		return "", err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plaintext, &nonce, key)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *sealer) open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: sealed payload", ErrCorrupt)
	}
	key, err := s.keyFor(raw[:saltSize])
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("%w: wrong passphrase or tampered file", ErrCorrupt)
	}
	return plain, nil
}

func deriveKey(passphrase, salt []byte) (*[32]byte, error) {
	derived, err := scrypt.Key(passphrase, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [32]byte
	copy(key[:], derived)
	return &key, nil
}
