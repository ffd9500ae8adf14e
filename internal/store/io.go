package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"relaychat/internal/domain"
	"relaychat/internal/util/memzero"
)

// table is the on-disk shape of every store file: records keyed by peer.
type table[T any] map[domain.UserID]T

// loadTable reads a plain JSON table; a missing file yields an empty table.
func loadTable[T any](path string) (table[T], error) {
	t := make(table[T])
	b, err := readFile(path)
	if err != nil || b == nil {
		return t, err
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// saveTable writes t as indented JSON.
func saveTable[T any](path string, t table[T]) error {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, b, 0o600)
}

// loadSealedTable is loadTable for files sealed under passphrase.
func loadSealedTable[T any](path, passphrase string) (table[T], error) {
	t := make(table[T])
	b, err := readFile(path)
	if err != nil || b == nil {
		return t, err
	}
	raw, err := unseal(filepath.Base(path), passphrase, b)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(raw)
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// saveSealedTable seals t under passphrase before writing it.
func saveSealedTable[T any](path, passphrase string, kdf ScryptParams, t table[T]) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)
	b, err := seal(filepath.Base(path), passphrase, raw, kdf)
	if err != nil {
		return err
	}
	return writeFile(path, b, 0o600)
}

// readFile reads the file at path; a missing file yields nil, nil.
func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// writeFile writes b to a synced temp file in the same directory, then
// renames it over path.
func writeFile(path string, b []byte, mode os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	_, err = f.Write(b)
	if err == nil {
		err = f.Chmod(mode)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
