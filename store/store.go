// Package store defines where baselines live.
//
// A baseline is a set of blobs under a test identity:
//
//	<identity>/metadata.json
//	<identity>/000.png
//	<identity>/001.png
//
// Keys are slash-separated regardless of the backend. Implementations live in
// the fsstore, sqlitestore and memstore subpackages.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by ReadFile for a key that was never written.
	// It signals "no baseline yet" and is not a test failure by itself.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidKey is returned for empty keys, absolute keys and keys with
	// "." or ".." segments.
	ErrInvalidKey = errors.New("store: invalid key")
)

// Store reads and writes baseline blobs.
type Store interface {
	// ReadFile returns the blob stored under key, or an error matching
	// ErrNotFound.
	ReadFile(ctx context.Context, key string) ([]byte, error)

	// WriteFile stores data under key, replacing any previous blob.
	WriteFile(ctx context.Context, key string, data []byte) error
}

// Lister is implemented by stores that can enumerate keys.
type Lister interface {
	// List returns all keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Deleter is implemented by stores that can delete baselines.
type Deleter interface {
	// Delete removes every key starting with prefix and returns how many
	// were removed.
	Delete(ctx context.Context, prefix string) (int, error)
}

// ValidateKey checks that key is a relative, slash-separated path without
// "." or ".." segments.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) || strings.ContainsRune(key, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// NotFound wraps ErrNotFound with the key.
func NotFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}
