package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/docuhearth/api"
	"github.com/warp/docuhearth/engine"
	rctx "github.com/warp/docuhearth/rules/context"
	"github.com/warp/docuhearth/rules/presets"
)

const docPath = "projects/P/databases/(default)/documents/u/1"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	file, err := presets.Load(presets.ServiceFirestore, presets.AllowAll)
	require.NoError(t, err)
	e := engine.New("P", file, rctx.CloudFirestore)
	return api.NewRouter(api.NewHandler(e))
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_CommitThenBatchGet(t *testing.T) {
	r := newTestRouter(t)

	commitBody := map[string]any{
		"writes": []map[string]any{
			{"update": map[string]any{
				"name":   docPath,
				"fields": map[string]any{"n": map[string]any{"stringValue": "A"}},
			}},
		},
	}
	rec := post(t, r, "/v1/projects/P/databases/(default)/documents:commit", commitBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var commitResp api.CommitResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &commitResp))
	require.Len(t, commitResp.WriteResults, 1)
	require.NotEmpty(t, commitResp.CommitTime)

	getBody := map[string]any{"documents": []string{docPath}}
	rec = post(t, r, "/v1/projects/P/databases/(default)/documents:batchGet", getBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []api.BatchGetResultDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Found)
	s, ok := items[0].Found.Fields["n"].AsString()
	require.True(t, ok)
	require.Equal(t, "A", s)
}

func TestHandlers_BatchGetNewTransactionStampsEveryEntry(t *testing.T) {
	r := newTestRouter(t)

	commitBody := map[string]any{
		"writes": []map[string]any{
			{"update": map[string]any{
				"name":   docPath,
				"fields": map[string]any{"n": map[string]any{"stringValue": "A"}},
			}},
		},
	}
	rec := post(t, r, "/v1/projects/P/databases/(default)/documents:commit", commitBody)
	require.Equal(t, http.StatusOK, rec.Code)

	getBody := map[string]any{
		"documents":      []string{docPath, docPath},
		"newTransaction": map[string]any{},
	}
	rec = post(t, r, "/v1/projects/P/databases/(default)/documents:batchGet", getBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []api.BatchGetResultDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	require.NotEmpty(t, items[0].Transaction)
	require.Equal(t, items[0].Transaction, items[1].Transaction)
}

func TestHandlers_BeginTransactionThenRollback(t *testing.T) {
	r := newTestRouter(t)

	rec := post(t, r, "/v1/projects/P/databases/(default)/documents:beginTransaction", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	var beginResp api.BeginTransactionResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &beginResp))
	require.NotEmpty(t, beginResp.Transaction)

	rec = post(t, r, "/v1/projects/P/databases/(default)/documents:rollback", map[string]any{
		"transaction": beginResp.Transaction,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{}`, rec.Body.String())
}

func TestHandlers_CommitMalformedWriteYieldsInvalidArgument(t *testing.T) {
	r := newTestRouter(t)

	rec := post(t, r, "/v1/projects/P/databases/(default)/documents:commit", map[string]any{
		"writes": []map[string]any{{}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var env api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "INVALID_ARGUMENT", env.Error.Status)
}

func TestHandlers_BatchGetOverLimitYieldsInvalidArgument(t *testing.T) {
	r := newTestRouter(t)

	docs := make([]string, engine.MaxBatchGet+1)
	for i := range docs {
		docs[i] = docPath
	}
	rec := post(t, r, "/v1/projects/P/databases/(default)/documents:batchGet", map[string]any{
		"documents": docs,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
