package docpath_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/docuhearth/docpath"
)

func TestParse_Valid(t *testing.T) {
	p, err := docpath.Parse("projects/proj1/databases/(default)/documents/users/alice/posts/1")
	require.NoError(t, err)
	require.Equal(t, "proj1", p.Project)
	require.Equal(t, "(default)", p.Database)
	require.Equal(t, []string{"users", "alice", "posts", "1"}, p.Segments)
	require.Equal(t, "posts", p.CollectionID())
	require.Equal(t, "1", p.DocumentID())
}

func TestParse_OddSegmentCount(t *testing.T) {
	_, err := docpath.Parse("projects/p/databases/(default)/documents/users")
	require.ErrorIs(t, err, docpath.ErrInvalidPath)
}

func TestParse_UnknownDatabase(t *testing.T) {
	_, err := docpath.Parse("projects/p/databases/other/documents/users/1")
	require.True(t, errors.Is(err, docpath.ErrUnknownDatabase))
}

func TestParse_EmptySegment(t *testing.T) {
	_, err := docpath.Parse("projects/p/databases/(default)/documents/users/")
	require.ErrorIs(t, err, docpath.ErrInvalidPath)
}

func TestParent(t *testing.T) {
	p, err := docpath.Parse("projects/p/databases/(default)/documents/users/alice/posts/1")
	require.NoError(t, err)

	parent, ok := p.Parent()
	require.True(t, ok)
	require.Equal(t, "projects/p/databases/(default)/documents/users/alice", parent.String())

	_, ok = parent.Parent()
	require.False(t, ok)
}

func TestChild(t *testing.T) {
	p, err := docpath.Parse("projects/p/databases/(default)/documents/users/alice")
	require.NoError(t, err)
	c := p.Child("posts", "1")
	require.Equal(t, "projects/p/databases/(default)/documents/users/alice/posts/1", c.String())
}

func TestInCollectionGroup(t *testing.T) {
	p, err := docpath.Parse("projects/p/databases/(default)/documents/a/1/posts/2")
	require.NoError(t, err)
	require.True(t, p.InCollectionGroup("posts"))
	require.False(t, p.InCollectionGroup("a"))
}
