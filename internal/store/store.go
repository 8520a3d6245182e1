// Package store persists the ledger's entities as JSON Lines files, one
// file per entity kind. Each store loads its file fully into memory at open
// and writes the whole file back on every mutation, through a temporary
// file and a rename so a crash never leaves a half-written store behind.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names inside a data directory.
const (
	TransactionsFile = "transactions.jsonl"
	AccountsFile     = "accounts.jsonl"
	RulesFile        = "planned.jsonl"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("not found")

// PersistenceError wraps a failed read or write of a backing file. The
// in-memory state is rolled back before it is returned, so the operation
// may be retried.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func readLines[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{"open", path, err}
	}
	defer f.Close()

	var items []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, &PersistenceError{"decode", path, err}
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, &PersistenceError{"read", path, err}
	}
	return items, nil
}

func writeLines[T any](path string, items []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{"mkdir", dir, err}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-")
	if err != nil {
		return &PersistenceError{"create", path, err}
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			tmp.Close()
			return &PersistenceError{"encode", path, err}
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return &PersistenceError{"write", path, err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{"close", path, err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &PersistenceError{"rename", path, err}
	}
	return nil
}
