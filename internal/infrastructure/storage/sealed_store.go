package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltKey   = "sealed-salt"
	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

var ErrSealedValue = errors.New("storage: sealed value cannot be opened")

// SealedStore encrypts values with NaCl secretbox before handing them to the
// wrapped store. The key is derived from a passphrase with scrypt; the salt is
// kept unencrypted in the wrapped store under "sealed-salt".
type SealedStore struct {
	inner KeyValueStore
	key   [keySize]byte
}

// NewSealedStore loads or creates the salt and derives the encryption key.
func NewSealedStore(ctx context.Context, inner KeyValueStore, passphrase string) (*SealedStore, error) {
	salt, err := inner.Get(ctx, saltKey)
	if errors.Is(err, ErrNotFound) {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		if err := inner.Put(ctx, saltKey, salt); err != nil {
			return nil, fmt.Errorf("store salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load salt: %w", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	s := &SealedStore{inner: inner}
	copy(s.key[:], derived)
	return s, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%s: %w", key, ErrSealedValue)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	opened, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrSealedValue)
	}
	return opened, nil
}

func (s *SealedStore) Put(ctx context.Context, key string, value []byte) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], value, &nonce, &s.key)
	return s.inner.Put(ctx, key, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
