package reminder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Document keys, kept compatible with the browser storage layout.
const (
	RemindersKey = "sundriven"
	SettingsKey  = "sundriven-settings"
)

// FileStore keeps reminders and settings in a single JSON document:
//
//	{"sundriven": {"<name>": {...}}, "sundriven-settings": {...}}
type FileStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path on fsys.
func NewFileStore(fsys afero.Fs, path string) *FileStore {
	return &FileStore{fs: fsys, path: path}
}

func (f *FileStore) read() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	b, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return doc, nil
}

func (f *FileStore) write(doc map[string]json.RawMessage) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, b, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		f.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (f *FileStore) update(key string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	doc[key] = raw
	return f.write(doc)
}

// Get returns the stored reminders; a null or missing mapping is empty.
func (f *FileStore) Get() (Set, error) {
	f.mu.Lock()
	doc, err := f.read()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	set := make(Set)
	if raw, ok := doc[RemindersKey]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &set); err != nil {
			return nil, fmt.Errorf("parse reminders: %w", err)
		}
	}
	return set, nil
}

func (f *FileStore) Set(set Set) error {
	if set == nil {
		set = Set{}
	}
	return f.update(RemindersKey, set)
}

func (f *FileStore) Settings() (Settings, error) {
	f.mu.Lock()
	doc, err := f.read()
	f.mu.Unlock()
	if err != nil {
		return Settings{}, err
	}
	var st Settings
	if raw, ok := doc[SettingsKey]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &st); err != nil {
			return Settings{}, fmt.Errorf("parse settings: %w", err)
		}
	}
	return st, nil
}

func (f *FileStore) SaveSettings(st Settings) error {
	return f.update(SettingsKey, st)
}

// Close is a no-op.
func (f *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
