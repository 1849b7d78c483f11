// Package keyring keeps the daemon's RPC secret in the operating system's
// keyring, falling back to a private file when no keyring service exists.
package keyring

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/zalando/go-keyring"
)

// secretLen is the size of a generated secret in bytes.
const secretLen = 32

type Keyring struct {
	AppName  string
	KeyField string
}

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
	randRead      = rand.Read
)

func NewKeyring() *Keyring {
	return &Keyring{
		AppName:  "sundriven",
		KeyField: "rpc-secret",
	}
}

// SetKey generates a new secret, stores it hex-encoded and returns it.
func (k *Keyring) SetKey() ([]byte, error) {
	key, err := newSecret(randRead)
	if err != nil {
		return nil, err
	}
	if err := keyringSet(k.AppName, k.KeyField, hex.EncodeToString(key)); err != nil {
		return nil, err
	}
	return key, nil
}

func (k *Keyring) GetKey() ([]byte, error) {
	stored, err := keyringGet(k.AppName, k.KeyField)
	if err != nil {
		return nil, err
	}
	return decodeSecret(stored)
}

func (k *Keyring) DeleteKey() error {
	return keyringDelete(k.AppName, k.KeyField)
}

func newSecret(read func([]byte) (int, error)) ([]byte, error) {
	key := make([]byte, secretLen)
	if _, err := read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

func decodeSecret(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid key format: %w", err)
	}
	if len(key) != secretLen {
		return nil, fmt.Errorf("invalid key length: expected %d, got %d", secretLen, len(key))
	}
	return key, nil
}
