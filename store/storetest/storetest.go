// Package storetest provides a conformance suite for store.Store
// implementations.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/vrt/store"
)

// Run exercises newStore against the store.Store contract. newStore must
// return an empty store. Lister and Deleter are tested when implemented.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ReadFile(ctx, "suite/test/metadata.json")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteFile(ctx, "suite/test/000.png", []byte{1, 2, 3}))

		got, err := s.ReadFile(ctx, "suite/test/000.png")
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteFile(ctx, "k/v", []byte("old")))
		require.NoError(t, s.WriteFile(ctx, "k/v", []byte("new")))

		got, err := s.ReadFile(ctx, "k/v")
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})

	t.Run("EscapedIdentity", func(t *testing.T) {
		s := newStore(t)
		key := "a%2Fb/c%5Cd/metadata.json"
		require.NoError(t, s.WriteFile(ctx, key, []byte("{}")))

		got, err := s.ReadFile(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(got))

		_, err = s.ReadFile(ctx, "a/b/c%5Cd/metadata.json")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		s := newStore(t)
		for _, key := range []string{"", "/abs", "../escape", "a/../b", "a//b", "a/./b"} {
			err := s.WriteFile(ctx, key, []byte("x"))
			assert.ErrorIs(t, err, store.ErrInvalidKey, "WriteFile(%q)", key)

			_, err = s.ReadFile(ctx, key)
			assert.ErrorIs(t, err, store.ErrInvalidKey, "ReadFile(%q)", key)
		}
	})

	t.Run("List", func(t *testing.T) {
		s := newStore(t)
		l, ok := s.(store.Lister)
		if !ok {
			t.Skip("store does not implement Lister")
		}
		for _, k := range []string{"b/2", "a/1", "b/1", "c_/1", "c%/1"} {
			require.NoError(t, s.WriteFile(ctx, k, []byte(k)))
		}

		keys, err := l.List(ctx, "b/")
		require.NoError(t, err)
		assert.Equal(t, []string{"b/1", "b/2"}, keys)

		keys, err = l.List(ctx, "c%")
		require.NoError(t, err)
		assert.Equal(t, []string{"c%/1"}, keys)

		keys, err = l.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, keys, 5)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		d, ok := s.(store.Deleter)
		if !ok {
			t.Skip("store does not implement Deleter")
		}
		for _, k := range []string{"x/y/metadata.json", "x/y/000.png", "x/z/000.png"} {
			require.NoError(t, s.WriteFile(ctx, k, []byte("1")))
		}

		n, err := d.Delete(ctx, "x/y/")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = s.ReadFile(ctx, "x/y/000.png")
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.ReadFile(ctx, "x/z/000.png")
		assert.NoError(t, err)
	})
}
