// Package storetest checks domain.GroupStore implementations.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grove/internal/domain"
)

// GroupStore runs the behaviour every GroupStore backend shares against a
// fresh store from open.
func GroupStore(t *testing.T, open func(t *testing.T) domain.GroupStore) {
	t.Run("LoadUnknown", func(t *testing.T) {
		s := open(t)
		_, err := s.LoadGroup(context.Background(), domain.GroupIDFromString("nope"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SaveLoad", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		id := domain.GroupIDFromString("team-42")
		require.NoError(t, s.SaveGroup(ctx, id, []byte("epoch-1")))

		got, err := s.LoadGroup(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("epoch-1"), got)
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		id := domain.GroupIDFromString("team-42")
		require.NoError(t, s.SaveGroup(ctx, id, []byte("epoch-1")))
		require.NoError(t, s.SaveGroup(ctx, id, []byte("epoch-2")))

		got, err := s.LoadGroup(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("epoch-2"), got)
	})

	t.Run("BinaryIDs", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		a := domain.GroupID{0x00, 0xff, 0x10}
		b := domain.GroupID{0x00, 0xff}
		require.NoError(t, s.SaveGroup(ctx, a, []byte("a")))
		require.NoError(t, s.SaveGroup(ctx, b, []byte("b")))

		got, err := s.LoadGroup(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), got)
	})

	t.Run("LongID", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		id := make(domain.GroupID, 1024)
		for i := range id {
			id[i] = byte(i)
		}
		require.NoError(t, s.SaveGroup(ctx, id, []byte("long")))

		got, err := s.LoadGroup(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("long"), got)

		ids, err := s.ListGroups(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.GroupID{id}, ids)
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		one, two := domain.GroupIDFromString("one"), domain.GroupIDFromString("two")
		require.NoError(t, s.SaveGroup(ctx, one, []byte("1")))
		require.NoError(t, s.SaveGroup(ctx, two, []byte("2")))

		ids, err := s.ListGroups(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.GroupID{one, two}, ids)

		require.NoError(t, s.DeleteGroup(ctx, one))
		require.NoError(t, s.DeleteGroup(ctx, one))
		_, err = s.LoadGroup(ctx, one)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		ids, err = s.ListGroups(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.GroupID{two}, ids)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, s.SaveGroup(ctx, domain.GroupIDFromString("x"), []byte("x")))
	})
}
