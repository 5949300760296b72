package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/warp/docuhearth/commit"
	"github.com/warp/docuhearth/engine"
	rctx "github.com/warp/docuhearth/rules/context"
)

// Handler holds the engine and exposes it as HTTP endpoints. One Handler
// per served project+database, mirroring timeoff/api's single-Store
// Handler.
type Handler struct {
	Engine *engine.Engine
}

// NewHandler creates a Handler wrapping e.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{Engine: e}
}

func requestFromHTTP(r *http.Request) rctx.Request {
	req := rctx.Request{Time: time.Now().UTC(), Operation: rctx.OpGet}
	if uid := r.Header.Get("X-Debug-Auth-Uid"); uid != "" {
		req.Auth = map[string]any{"uid": uid}
	}
	return req
}

// BatchGet handles …/documents:batchGet (§6).
func (h *Handler) BatchGet(w http.ResponseWriter, r *http.Request) {
	var req BatchGetRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, newStatusErrorJSON(http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()))
		return
	}

	var mask []string
	if req.Mask != nil {
		mask = req.Mask.FieldPaths
	}

	items, readTime, txID, err := h.Engine.BatchGet(req.Documents, mask, req.Transaction, req.NewTransaction != nil, requestFromHTTP(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	readTimeStr := readTime.UTC().Format(time.RFC3339Nano)
	out := make([]BatchGetResultDTO, len(items))
	for i, item := range items {
		if item.Found {
			doc := toDocumentDTO(item.Path, item.Doc)
			out[i] = BatchGetResultDTO{Found: &doc, ReadTime: readTimeStr, Transaction: txID}
		} else {
			out[i] = BatchGetResultDTO{Missing: item.Path, ReadTime: readTimeStr, Transaction: txID}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Commit handles …/documents:commit (§6).
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, newStatusErrorJSON(http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()))
		return
	}

	writes := make([]commit.Write, len(req.Writes))
	for i, wd := range req.Writes {
		cw, err := wd.toDomain()
		if err != nil {
			writeError(w, newStatusErrorJSON(http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()))
			return
		}
		writes[i] = cw
	}

	results, commitTime, err := h.Engine.Commit(writes, req.Transaction, requestFromHTTP(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	out := make([]WriteResultDTO, len(results))
	for i, res := range results {
		out[i] = WriteResultDTO{
			UpdateTime:       res.UpdateTime.UTC().Format(time.RFC3339Nano),
			TransformResults: res.TransformResults,
		}
	}
	writeJSON(w, http.StatusOK, CommitResponseDTO{
		WriteResults: out,
		CommitTime:   commitTime.UTC().Format(time.RFC3339Nano),
	})
}

// BeginTransaction handles …/documents:beginTransaction (§6).
func (h *Handler) BeginTransaction(w http.ResponseWriter, r *http.Request) {
	var req BeginTransactionRequestDTO
	_ = json.NewDecoder(r.Body).Decode(&req)

	id, err := h.Engine.BeginTransaction(req.ReadOnly)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BeginTransactionResponseDTO{Transaction: id})
}

// Rollback handles …/documents:rollback (§6): a successful rollback
// returns an empty JSON object.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	var req RollbackRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, newStatusErrorJSON(http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()))
		return
	}
	if err := h.Engine.Rollback(req.Transaction); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, env statusErrorJSON) {
	writeJSON(w, env.httpCode, ErrorEnvelope{Error: ErrorBody{
		Code:    env.httpCode,
		Message: env.message,
		Status:  env.status,
	}})
}

type statusErrorJSON struct {
	httpCode int
	status   string
	message  string
}

func newStatusErrorJSON(httpCode int, status, message string) statusErrorJSON {
	return statusErrorJSON{httpCode: httpCode, status: status, message: message}
}

// writeEngineError translates an *engine.StatusError (or any other error,
// defensively mapped to INTERNAL) into the wire error envelope (§6, §7).
func writeEngineError(w http.ResponseWriter, err error) {
	if se, ok := err.(*engine.StatusError); ok {
		writeError(w, newStatusErrorJSON(se.Code.HTTPCode(), string(se.Code), se.Message))
		return
	}
	writeError(w, newStatusErrorJSON(http.StatusInternalServerError, "INTERNAL", err.Error()))
}
