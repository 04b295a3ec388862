package security

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealVersion = 1
	sealSaltLen = 16
)

var ErrUnsealFailed = errors.New("unseal: value is corrupt or was sealed with another passphrase")

// Sealer encrypts small values with XChaCha20-Poly1305. Each sealed value
// carries the salt its key was derived from:
//
//	version(1) | salt(16) | nonce(24) | ciphertext
type Sealer struct {
	passphrase string
	salt       []byte
	aead       cipher.AEAD

	mu    sync.Mutex
	cache map[string]cipher.AEAD
}

func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("sealer: empty passphrase")
	}

	salt := make([]byte, sealSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	return &Sealer{
		passphrase: passphrase,
		salt:       salt,
		aead:       aead,
		cache:      map[string]cipher.AEAD{string(salt): aead},
	}, nil
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+sealSaltLen+len(nonce)+len(plaintext)+s.aead.Overhead())
	out = append(out, sealVersion)
	out = append(out, s.salt...)
	out = append(out, nonce...)
	header := bytes.Clone(out)
	return s.aead.Seal(out, nonce, plaintext, header), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	headerLen := 1 + sealSaltLen + chacha20poly1305.NonceSizeX
	if len(sealed) < headerLen || sealed[0] != sealVersion {
		return nil, ErrUnsealFailed
	}

	salt := sealed[1 : 1+sealSaltLen]
	nonce := sealed[1+sealSaltLen : headerLen]

	aead, err := s.aeadFor(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, sealed[headerLen:], sealed[:headerLen])
	if err != nil {
		return nil, ErrUnsealFailed
	}
	return plaintext, nil
}

func (s *Sealer) aeadFor(salt []byte) (cipher.AEAD, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if aead, ok := s.cache[string(salt)]; ok {
		return aead, nil
	}
	aead, err := chacha20poly1305.NewX(DeriveKey(s.passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	s.cache[string(salt)] = aead
	return aead, nil
}
