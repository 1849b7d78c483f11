package keyring

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestFileKeyStore_SetGetDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	fks := NewFileKeyStore(dir)

	key, err := fks.SetKey()
	if err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	info, err := os.Stat(fks.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != keyFileMode {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(keyFileMode))
	}

	got, err := fks.GetKey()
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatalf("GetKey = %x, want %x", got, key)
	}

	if err := fks.DeleteKey(); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if _, err := fks.GetKey(); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("GetKey after delete = %v, want not exist", err)
	}
}

func TestFileKeyStore_GetKey_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not hex", "not-hex"},
		{"wrong length", "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fks := NewFileKeyStore(t.TempDir())
			if err := os.WriteFile(fks.Path(), []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := fks.GetKey(); err == nil {
				t.Fatal("expected error for corrupt key file")
			}
		})
	}
}

func TestFileKeyStore_SetKey_Errors(t *testing.T) {
	origRand, origMkdir, origRename := fileRandRead, fileMkdirAll, fileRename
	t.Cleanup(func() { fileRandRead, fileMkdirAll, fileRename = origRand, origMkdir, origRename })

	dir := t.TempDir()
	fks := NewFileKeyStore(dir)

	fileRandRead = func([]byte) (int, error) { return 0, errors.New("rand fail") }
	if _, err := fks.SetKey(); err == nil {
		t.Error("expected rand error")
	}
	fileRandRead = origRand

	fileMkdirAll = func(string, os.FileMode) error { return errors.New("mkdir fail") }
	if _, err := fks.SetKey(); err == nil {
		t.Error("expected mkdir error")
	}
	fileMkdirAll = origMkdir

	fileRename = func(string, string) error { return errors.New("rename fail") }
	if _, err := fks.SetKey(); err == nil {
		t.Error("expected rename error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp file left behind: %v", entries)
	}
}
