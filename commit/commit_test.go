package commit_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/docuhearth/commit"
	"github.com/warp/docuhearth/internal/clock"
	"github.com/warp/docuhearth/precondition"
	"github.com/warp/docuhearth/store"
	"github.com/warp/docuhearth/transform"
	"github.com/warp/docuhearth/value"
)

const path = "projects/p/databases/(default)/documents/users/alice"

func boolPtr(b bool) *bool { return &b }

func TestApply_CreateThenUpdatePreservesCreateTime(t *testing.T) {
	s := store.NewMemory()
	clk := clock.New()

	_, commitTime1, err := commit.Apply(s, clk, []commit.Write{
		{Kind: commit.Update, Path: path, Fields: map[string]value.Value{"name": value.String("alice")}},
	})
	require.NoError(t, err)

	doc, ok := s.Get(path)
	require.True(t, ok)
	require.True(t, doc.CreateTime.Equal(commitTime1))

	_, commitTime2, err := commit.Apply(s, clk, []commit.Write{
		{Kind: commit.Update, Path: path, Fields: map[string]value.Value{"name": value.String("alicia")}},
	})
	require.NoError(t, err)
	require.True(t, commitTime2.After(commitTime1))

	doc, _ = s.Get(path)
	require.True(t, doc.CreateTime.Equal(commitTime1), "createTime must be immutable across updates")
	require.True(t, doc.UpdateTime.Equal(commitTime2))
}

func TestApply_UpdateMaskMergesRatherThanReplaces(t *testing.T) {
	s := store.NewMemory()
	clk := clock.New()

	_, _, err := commit.Apply(s, clk, []commit.Write{
		{Kind: commit.Update, Path: path, Fields: map[string]value.Value{
			"name": value.String("alice"),
			"age":  value.Int(30),
		}},
	})
	require.NoError(t, err)

	_, _, err = commit.Apply(s, clk, []commit.Write{
		{
			Kind:       commit.Update,
			Path:       path,
			Fields:     map[string]value.Value{"age": value.Int(31)},
			UpdateMask: []string{"age"},
		},
	})
	require.NoError(t, err)

	doc, _ := s.Get(path)
	name, _ := value.GetField(doc.Fields, "name")
	age, _ := value.GetField(doc.Fields, "age")
	require.True(t, value.Equal(value.String("alice"), name), "masked update must preserve fields outside the mask")
	require.True(t, value.Equal(value.Int(31), age))
}

func TestApply_TransformsRunAfterMaskedUpdate(t *testing.T) {
	s := store.NewMemory()
	clk := clock.New()

	_, _, err := commit.Apply(s, clk, []commit.Write{
		{Kind: commit.Update, Path: path, Fields: map[string]value.Value{"count": value.Int(1)}},
	})
	require.NoError(t, err)

	results, commitTime, err := commit.Apply(s, clk, []commit.Write{
		{
			Kind:       commit.Update,
			Path:       path,
			Fields:     map[string]value.Value{"name": value.String("alice")},
			UpdateMask: []string{"name"},
			FieldTransforms: []transform.FieldTransform{
				{FieldPath: "count", Kind: transform.Increment, Operand: value.Int(1)},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, value.Equal(value.Int(2), results[0].TransformResults[0]))
	require.True(t, results[0].UpdateTime.Equal(commitTime))
}

func TestApply_DeleteRemovesDocument(t *testing.T) {
	s := store.NewMemory()
	clk := clock.New()

	_, _, err := commit.Apply(s, clk, []commit.Write{
		{Kind: commit.Update, Path: path, Fields: map[string]value.Value{"name": value.String("alice")}},
	})
	require.NoError(t, err)

	_, _, err = commit.Apply(s, clk, []commit.Write{{Kind: commit.Delete, Path: path}})
	require.NoError(t, err)
	require.False(t, s.Exists(path))
}

func TestApply_PreconditionFailureAbortsEntireBatchWithNoMutation(t *testing.T) {
	s := store.NewMemory()
	clk := clock.New()

	other := "projects/p/databases/(default)/documents/users/bob"
	_, _, err := commit.Apply(s, clk, []commit.Write{
		{Kind: commit.Update, Path: path, Fields: map[string]value.Value{"name": value.String("alice")}},
		{
			Kind:         commit.Update,
			Path:         other,
			Fields:       map[string]value.Value{"name": value.String("bob")},
			Precondition: precondition.Precondition{Exists: boolPtr(true)},
		},
	})
	require.Error(t, err)
	require.False(t, s.Exists(path), "a failing precondition anywhere in the batch must leave the whole store untouched")
	require.False(t, s.Exists(other))
}

func TestApply_TooManyWritesRejected(t *testing.T) {
	s := store.NewMemory()
	clk := clock.New()

	writes := make([]commit.Write, commit.MaxWrites+1)
	for i := range writes {
		writes[i] = commit.Write{Kind: commit.Delete, Path: path}
	}

	_, _, err := commit.Apply(s, clk, writes)
	require.ErrorIs(t, err, commit.ErrInvalidArgument)
}

func TestApply_InvalidPathRejected(t *testing.T) {
	s := store.NewMemory()
	clk := clock.New()

	_, _, err := commit.Apply(s, clk, []commit.Write{{Kind: commit.Delete, Path: "not-a-valid-path"}})
	require.ErrorIs(t, err, commit.ErrInvalidArgument)
}

func TestApply_PureTransformWriteCreatesDocumentFromEmpty(t *testing.T) {
	s := store.NewMemory()
	clk := clock.New()

	results, commitTime, err := commit.Apply(s, clk, []commit.Write{
		{
			Kind: commit.Transform,
			Path: path,
			FieldTransforms: []transform.FieldTransform{
				{FieldPath: "c", Kind: transform.Increment, Operand: value.Int(1)},
			},
		},
	})
	require.NoError(t, err)
	require.True(t, value.Equal(value.Int(1), results[0].TransformResults[0]))

	doc, ok := s.Get(path)
	require.True(t, ok)
	require.True(t, doc.CreateTime.Equal(commitTime))
}
