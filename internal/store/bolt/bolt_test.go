package bolt_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"grove/internal/domain"
	"grove/internal/store/bolt"
	"grove/internal/store/storetest"
)

func TestGroupStore(t *testing.T) {
	storetest.GroupStore(t, func(t *testing.T) domain.GroupStore {
		s, err := bolt.Open(filepath.Join(t.TempDir(), "groups.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestGroupStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.db")
	s, err := bolt.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveGroup(t.Context(), domain.GroupIDFromString("g"), []byte("state")))
	require.NoError(t, s.Close())

	s, err = bolt.Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadGroup(t.Context(), domain.GroupIDFromString("g"))
	require.NoError(t, err)
	require.Equal(t, []byte("state"), got)
}
