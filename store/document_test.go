package store_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/docuhearth/store"
	"github.com/warp/docuhearth/value"
)

func TestMemory_GetSet(t *testing.T) {
	m := store.NewMemory()
	_, ok := m.Get("projects/p/databases/(default)/documents/users/alice")
	require.False(t, ok)
	require.False(t, m.Exists("projects/p/databases/(default)/documents/users/alice"))

	now := time.Now().UTC()
	doc := store.Document{
		Fields:     map[string]value.Value{"name": value.String("alice")},
		CreateTime: now,
		UpdateTime: now,
	}
	m.Set("projects/p/databases/(default)/documents/users/alice", doc)

	got, ok := m.Get("projects/p/databases/(default)/documents/users/alice")
	require.True(t, ok)
	require.True(t, m.Exists("projects/p/databases/(default)/documents/users/alice"))
	require.True(t, value.Equal(value.String("alice"), got.Fields["name"]))
	require.Equal(t, 1, m.Len())
}

func TestMemory_GetClonesSoCallerCannotMutateStoredState(t *testing.T) {
	m := store.NewMemory()
	now := time.Now().UTC()
	m.Set("path/a", store.Document{
		Fields:     map[string]value.Value{"n": value.Int(1)},
		CreateTime: now,
		UpdateTime: now,
	})

	got, _ := m.Get("path/a")
	got.Fields["n"] = value.Int(999)

	again, _ := m.Get("path/a")
	require.True(t, value.Equal(value.Int(1), again.Fields["n"]), "mutating a returned Document must not affect the store")
}

func TestMemory_Delete(t *testing.T) {
	m := store.NewMemory()
	now := time.Now().UTC()
	m.Set("path/a", store.Document{Fields: map[string]value.Value{}, CreateTime: now, UpdateTime: now})

	m.Delete("path/a")
	require.False(t, m.Exists("path/a"))

	require.NotPanics(t, func() { m.Delete("path/does-not-exist") })
}

func TestMemory_CollectionGroup(t *testing.T) {
	m := store.NewMemory()
	now := time.Now().UTC()
	paths := []string{
		"projects/p/databases/(default)/documents/a/1/posts/2",
		"projects/p/databases/(default)/documents/b/9/posts/1",
		"projects/p/databases/(default)/documents/a/1/comments/3",
	}
	for _, p := range paths {
		m.Set(p, store.Document{Fields: map[string]value.Value{}, CreateTime: now, UpdateTime: now})
	}

	lastSegmentIndex := func(path string) (string, bool) {
		segs := strings.Split(path, "/")
		if len(segs) < 2 {
			return "", false
		}
		return segs[len(segs)-2], true
	}

	group := m.CollectionGroup("posts", lastSegmentIndex)
	require.Equal(t, []string{
		"projects/p/databases/(default)/documents/a/1/posts/2",
		"projects/p/databases/(default)/documents/b/9/posts/1",
	}, group, "results must be sorted and restricted to the requested collection id")
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	now := time.Now().UTC()
	d := store.Document{Fields: map[string]value.Value{"n": value.Int(1)}, CreateTime: now, UpdateTime: now}
	c := d.Clone()
	c.Fields["n"] = value.Int(2)
	require.True(t, value.Equal(value.Int(1), d.Fields["n"]))
}
