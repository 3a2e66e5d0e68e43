// Package jsonfile stores a collection as one versioned JSON document on disk.
//
// Every write replaces the whole document: the payload is written to a temp
// file in the same directory, synced, then renamed over the target, so a
// reader sees either the previous document or the new one.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Version is the document layout version written by Write.
const Version = 1

// Document is the on-disk envelope around a collection.
type Document[T any] struct {
	Kind      string    `json:"kind"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	Items     []T       `json:"items"`
}

// Write atomically replaces path with a document holding items.
func Write[T any](path, kind string, items []T, now time.Time) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.MarshalIndent(Document[T]{
		Kind:      kind,
		Version:   Version,
		UpdatedAt: now.UTC(),
		Items:     items,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	committed = true
	return nil
}

// Read loads the document at path. A missing file is not an error: found is
// false and items is empty.
func Read[T any](path, kind string) (items []T, found bool, err error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []T{}, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", kind, err)
	}

	var doc Document[T]
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", kind, err)
	}
	if doc.Kind != "" && doc.Kind != kind {
		return nil, true, fmt.Errorf("decode %s: document holds %q", kind, doc.Kind)
	}
	if doc.Version > Version {
		return nil, true, fmt.Errorf("decode %s: unsupported version %d", kind, doc.Version)
	}
	if doc.Items == nil {
		doc.Items = []T{}
	}
	return doc.Items, true, nil
}
