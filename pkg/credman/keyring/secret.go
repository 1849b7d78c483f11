package keyring

import (
	"encoding/hex"
	"errors"
	"io/fs"
)

// KeyStore is implemented by Keyring and FileKeyStore.
type KeyStore interface {
	SetKey() ([]byte, error)
	GetKey() ([]byte, error)
	DeleteKey() error
}

// Logger receives fallback warnings.
type Logger interface {
	Warning(format string, args ...interface{})
}

// SecretStore resolves the RPC secret from the system keyring first and a
// file under the config directory second.
type SecretStore struct {
	primary  KeyStore
	fallback KeyStore
	log      Logger
}

func NewSecretStore(configDir string, log Logger) *SecretStore {
	return &SecretStore{
		primary:  NewKeyring(),
		fallback: NewFileKeyStore(configDir),
		log:      log,
	}
}

// Secret returns the stored secret hex-encoded. When none exists one is
// generated, preferring the keyring and falling back to the file.
func (s *SecretStore) Secret() (string, error) {
	if key, err := s.primary.GetKey(); err == nil {
		return hex.EncodeToString(key), nil
	}
	key, err := s.fallback.GetKey()
	if err == nil {
		return hex.EncodeToString(key), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	key, err = s.primary.SetKey()
	if err != nil {
		s.warn("system keyring unavailable (%v), storing the RPC secret in a file", err)
		key, err = s.fallback.SetKey()
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(key), nil
}

// Rotate replaces the secret wherever it is stored.
func (s *SecretStore) Rotate() (string, error) {
	_ = s.primary.DeleteKey()
	if err := s.fallback.DeleteKey(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	return s.Secret()
}

func (s *SecretStore) warn(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Warning(format, args...)
	}
}
