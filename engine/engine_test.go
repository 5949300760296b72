package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/docuhearth/commit"
	"github.com/warp/docuhearth/engine"
	"github.com/warp/docuhearth/precondition"
	rctx "github.com/warp/docuhearth/rules/context"
	"github.com/warp/docuhearth/rules/presets"
	"github.com/warp/docuhearth/value"
)

const docPath = "projects/P/databases/(default)/documents/u/1"

func newAllowAllEngine(t *testing.T) *engine.Engine {
	t.Helper()
	file, err := presets.Load(presets.ServiceFirestore, presets.AllowAll)
	require.NoError(t, err)
	return engine.New("P", file, rctx.CloudFirestore)
}

func TestEngine_CreateThenRead(t *testing.T) {
	e := newAllowAllEngine(t)

	results, commitTime, err := e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{"n": value.String("A")}},
	}, "", rctx.Request{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, commitTime, results[0].UpdateTime)

	items, _, _, err := e.BatchGet([]string{docPath}, nil, "", false, rctx.Request{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.True(t, items[0].Found)
	s, _ := items[0].Doc.Fields["n"].AsString()
	require.Equal(t, "A", s)
}

func TestEngine_PreconditionExistsFalseOnExistingDoc(t *testing.T) {
	e := newAllowAllEngine(t)
	_, _, err := e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{"n": value.String("A")}},
	}, "", rctx.Request{})
	require.NoError(t, err)

	no := false
	_, _, err = e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{"n": value.String("B")},
			Precondition: precondition.Precondition{Exists: &no}},
	}, "", rctx.Request{})
	require.Error(t, err)
	statusErr, ok := err.(*engine.StatusError)
	require.True(t, ok)
	require.Equal(t, engine.StatusAlreadyExists, statusErr.Code)

	items, _, _, err := e.BatchGet([]string{docPath}, nil, "", false, rctx.Request{})
	require.NoError(t, err)
	s, _ := items[0].Doc.Fields["n"].AsString()
	require.Equal(t, "A", s)
}

func TestEngine_TransactionConflict(t *testing.T) {
	e := newAllowAllEngine(t)
	_, _, err := e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{"n": value.String("A")}},
	}, "", rctx.Request{})
	require.NoError(t, err)

	t1, err := e.BeginTransaction(false)
	require.NoError(t, err)
	t2, err := e.BeginTransaction(false)
	require.NoError(t, err)

	_, _, _, err = e.BatchGet([]string{docPath}, nil, t1, false, rctx.Request{})
	require.NoError(t, err)
	_, _, _, err = e.BatchGet([]string{docPath}, nil, t2, false, rctx.Request{})
	require.NoError(t, err)

	_, _, err = e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{"n": value.String("B")}},
	}, t1, rctx.Request{})
	require.NoError(t, err)

	_, _, err = e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{"n": value.String("C")}},
	}, t2, rctx.Request{})
	require.Error(t, err)
	statusErr, ok := err.(*engine.StatusError)
	require.True(t, ok)
	require.Equal(t, engine.StatusAborted, statusErr.Code)
}

func TestEngine_FieldMaskProjection(t *testing.T) {
	e := newAllowAllEngine(t)
	_, _, err := e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{
			"a": value.Int(1), "b": value.Int(2),
		}},
	}, "", rctx.Request{})
	require.NoError(t, err)

	items, _, _, err := e.BatchGet([]string{docPath}, []string{"a"}, "", false, rctx.Request{})
	require.NoError(t, err)
	require.Len(t, items[0].Doc.Fields, 1)
	_, hasB := items[0].Doc.Fields["b"]
	require.False(t, hasB)
}

func TestEngine_FieldMaskProjectionNestedPath(t *testing.T) {
	e := newAllowAllEngine(t)
	_, _, err := e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{
			"a": value.Map(map[string]value.Value{"b": value.Int(1), "c": value.Int(2)}),
		}},
	}, "", rctx.Request{})
	require.NoError(t, err)

	items, _, _, err := e.BatchGet([]string{docPath}, []string{"a.b"}, "", false, rctx.Request{})
	require.NoError(t, err)
	inner, ok := items[0].Doc.Fields["a"].AsMap()
	require.True(t, ok)
	require.Len(t, inner, 1)
	b, _ := inner["b"].AsInt()
	require.Equal(t, int64(1), b)
}

func TestEngine_BatchGetNewTransactionReturnsIDOnEveryEntry(t *testing.T) {
	e := newAllowAllEngine(t)
	_, _, err := e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{"n": value.String("A")}},
	}, "", rctx.Request{})
	require.NoError(t, err)

	items, _, txID, err := e.BatchGet([]string{docPath}, nil, "", true, rctx.Request{})
	require.NoError(t, err)
	require.NotEmpty(t, txID)
	require.Len(t, items, 1)

	_, _, _, err = e.BatchGet([]string{docPath}, nil, "", true, rctx.Request{})
	require.NoError(t, err)

	_, _, _, err = e.BatchGet([]string{docPath}, nil, txID, true, rctx.Request{})
	require.Error(t, err)
}

func TestEngine_DenyAllRejectsEverything(t *testing.T) {
	file, err := presets.Load(presets.ServiceFirestore, presets.DenyAll)
	require.NoError(t, err)
	e := engine.New("P", file, rctx.CloudFirestore)

	_, _, err = e.Commit([]commit.Write{
		{Kind: commit.Update, Path: docPath, Fields: map[string]value.Value{"n": value.String("A")}},
	}, "", rctx.Request{})
	require.Error(t, err)
}

func TestEngine_OwnerOnlyAllowsAuthenticatedOwner(t *testing.T) {
	file, err := presets.Load(presets.ServiceFirestore, presets.OwnerOnly)
	require.NoError(t, err)
	e := engine.New("P", file, rctx.CloudFirestore)

	aliceDoc := "projects/P/databases/(default)/documents/users/alice"

	_, _, err = e.Commit([]commit.Write{
		{Kind: commit.Update, Path: aliceDoc, Fields: map[string]value.Value{"name": value.String("Alice")}},
	}, "", rctx.Request{Auth: map[string]any{"uid": "alice"}})
	require.NoError(t, err)

	_, _, err = e.Commit([]commit.Write{
		{Kind: commit.Update, Path: aliceDoc, Fields: map[string]value.Value{"name": value.String("Mallory")}},
	}, "", rctx.Request{Auth: map[string]any{"uid": "bob"}})
	require.Error(t, err)

	_, _, err = e.Commit([]commit.Write{
		{Kind: commit.Update, Path: aliceDoc, Fields: map[string]value.Value{"name": value.String("Nobody")}},
	}, "", rctx.Request{})
	require.Error(t, err)
}
