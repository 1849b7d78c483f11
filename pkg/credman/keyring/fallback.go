package keyring

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	keyFileName = "rpc.secret"
	keyFileMode = 0600
)

// FileKeyStore provides file-based key storage as a fallback when the system
// keyring is unavailable. Keys are stored hex-encoded with 0600 permissions.
type FileKeyStore struct {
	configDir string
}

var (
	fileRandRead = rand.Read
	fileReadFile = os.ReadFile
	fileRemove   = os.Remove
	fileRename   = os.Rename
	fileMkdirAll = os.MkdirAll
	fileTempFile = os.CreateTemp
)

func NewFileKeyStore(configDir string) *FileKeyStore {
	return &FileKeyStore{configDir: configDir}
}

// Path is the file the secret is kept in.
func (f *FileKeyStore) Path() string {
	return filepath.Join(f.configDir, keyFileName)
}

// SetKey generates a secret and writes it atomically via a temp file and
// rename.
func (f *FileKeyStore) SetKey() ([]byte, error) {
	if err := fileMkdirAll(f.configDir, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	key, err := newSecret(fileRandRead)
	if err != nil {
		return nil, err
	}

	tmpFile, err := fileTempFile(f.configDir, ".rpc.secret.tmp.*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.WriteString(hex.EncodeToString(key)); err != nil {
		tmpFile.Close()
		fileRemove(tmpPath)
		return nil, fmt.Errorf("write key: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		fileRemove(tmpPath)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, keyFileMode); err != nil {
		fileRemove(tmpPath)
		return nil, fmt.Errorf("set permissions: %w", err)
	}
	if err := fileRename(tmpPath, f.Path()); err != nil {
		fileRemove(tmpPath)
		return nil, fmt.Errorf("rename key file: %w", err)
	}
	return key, nil
}

func (f *FileKeyStore) GetKey() ([]byte, error) {
	data, err := fileReadFile(f.Path())
	if err != nil {
		return nil, err
	}
	return decodeSecret(strings.TrimSpace(string(data)))
}

func (f *FileKeyStore) DeleteKey() error {
	return fileRemove(f.Path())
}
