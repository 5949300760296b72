/*
Package engine assembles the Document Store, Transaction Manager, Commit
Coordinator, Precondition Engine, and Rules Evaluator behind the single
coarse "engine lock" of §5, and translates internal errors into the §7
status taxonomy.

Grounded on timeoff/factory.go and rewards/factory.go's "wire the generic
engine with domain-specific policies" composition root, generalized here to
wire the document-database generic core with one of the two rules service
profiles (§9 D.5) instead of a PTO/rewards policy set.
*/
package engine

import (
	"fmt"
	"sync"
	"time"

	"errors"

	"github.com/warp/docuhearth/commit"
	"github.com/warp/docuhearth/docpath"
	"github.com/warp/docuhearth/docstore/txn"
	"github.com/warp/docuhearth/internal/clock"
	"github.com/warp/docuhearth/precondition"
	"github.com/warp/docuhearth/rules/ast"
	rctx "github.com/warp/docuhearth/rules/context"
	"github.com/warp/docuhearth/store"
	"github.com/warp/docuhearth/value"
)

// MaxBatchGet is the per-request document-read ceiling (§7: "batch size
// overflows (> 100 get...)").
const MaxBatchGet = 100

// DefaultIdleTimeout and DefaultTerminalRetention resolve §9's open
// question on the transaction idle-timeout policy (see DESIGN.md).
const (
	DefaultIdleTimeout       = 60 * time.Second
	DefaultTerminalRetention = 5 * time.Minute
)

// Engine is the composition root: every operation acquires mu for its
// entire duration, so validate/conflict-check/precondition/apply happens as
// one atomic critical section (§5).
type Engine struct {
	mu sync.Mutex

	project string
	store   *store.Memory
	txns    *txn.Manager
	clock   *clock.Clock
	auditor Auditor

	rules *ruleset
}

// Auditor receives a record of every BatchGet/Commit/BeginTransaction/
// Rollback call (§9 D.3); nil is a valid no-op auditor.
type Auditor interface {
	Record(op string, detail string, at time.Time)
}

type noopAuditor struct{}

func (noopAuditor) Record(string, string, time.Time) {}

// New creates an Engine for project, compiling rulesFile (may be nil,
// meaning every operation is denied) against the given service profile.
func New(project string, rulesFile *ast.File, service rctx.Service) *Engine {
	var rs *ruleset
	if rulesFile != nil {
		rs = compile(rulesFile, service)
	} else {
		rs = &ruleset{service: service, functions: map[string]*ast.FunctionDecl{}}
	}
	return &Engine{
		project: project,
		store:   store.NewMemory(),
		txns:    txn.NewManager(),
		clock:   clock.New(),
		auditor: noopAuditor{},
		rules:   rs,
	}
}

// SetAuditor installs a, non-nil, Auditor; pass nil to revert to a no-op.
func (e *Engine) SetAuditor(a Auditor) {
	if a == nil {
		a = noopAuditor{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auditor = a
}

// SetRules swaps the active ruleset (e.g. hot-reloading a .rules file).
func (e *Engine) SetRules(file *ast.File, service rctx.Service) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = compile(file, service)
}

// relativePath strips the "projects/P/databases/D/documents/" prefix a
// canonical path carries, leaving the segment string rules patterns match
// against (§4.8).
func relativePath(p docpath.Path) string {
	out := ""
	for i, s := range p.Segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}

func (e *Engine) authorizeOp(path string, op rctx.Operation, req rctx.Request) (bool, string, error) {
	p, err := docpath.Parse(path)
	if err != nil {
		return false, "", err
	}
	doc, exists := e.store.Get(path)
	adapter := &rctx.Adapter{Store: e.store, Project: p.Project, Database: p.Database}
	ok, reason := authorize(e.rules, relativePath(p), op, req, doc, exists, adapter)
	return ok, reason, nil
}

// BatchGetItem is one requested document's outcome (§4: "found or missing,
// same readTime").
type BatchGetItem struct {
	Path   string
	Found  bool
	Doc    store.Document
}

// BatchGet implements §6's …/documents:batchGet: reads every path under one
// shared readTime, honoring rules, and — when transactionID is non-empty, or
// newTransaction is set — the transaction's read-snapshot caching (§4.1).
// transactionID and newTransaction are mutually exclusive (§4.5); when
// newTransaction is set, BatchGet begins a fresh read-write transaction and
// returns its id, to be stamped onto every response entry by the caller.
func (e *Engine) BatchGet(paths []string, mask []string, transactionID string, newTransaction bool, req rctx.Request) ([]BatchGetItem, time.Time, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(paths) > MaxBatchGet {
		return nil, time.Time{}, "", newStatusError(StatusInvalidArgument, "%d documents exceeds the %d-document batchGet limit", len(paths), MaxBatchGet)
	}
	if transactionID != "" && newTransaction {
		return nil, time.Time{}, "", newStatusError(StatusInvalidArgument, "transaction and newTransaction are mutually exclusive")
	}

	var tx *txn.Transaction
	switch {
	case newTransaction:
		tx = e.txns.Begin(false, now())
		transactionID = tx.ID
	case transactionID != "":
		t, err := e.txns.RequireActive(transactionID)
		if err != nil {
			return nil, time.Time{}, "", statusForTxnErr(err)
		}
		tx = t
		tx.Touch(now())
	}

	readTime := e.clock.Next()
	items := make([]BatchGetItem, len(paths))
	for i, path := range paths {
		if _, err := docpath.Parse(path); err != nil {
			return nil, time.Time{}, "", newStatusError(StatusInvalidArgument, "%v", err)
		}
		ok, reason, err := e.authorizeOp(path, rctx.OpGet, req)
		if err != nil {
			return nil, time.Time{}, "", newStatusError(StatusInvalidArgument, "%v", err)
		}
		if !ok {
			return nil, time.Time{}, "", PermissionDenied(path, reason)
		}

		if tx != nil {
			if cached, hit := tx.CachedRead(path); hit {
				doc, _ := e.store.Get(path)
				items[i] = BatchGetItem{Path: path, Found: cached.Exists, Doc: applyMask(doc, mask)}
				continue
			}
			doc, found := e.store.Get(path)
			tx.RecordRead(path, found, doc.UpdateTime)
			items[i] = BatchGetItem{Path: path, Found: found, Doc: applyMask(doc, mask)}
			continue
		}

		doc, found := e.store.Get(path)
		items[i] = BatchGetItem{Path: path, Found: found, Doc: applyMask(doc, mask)}
	}

	e.auditor.Record("batchGet", fmt.Sprintf("%d paths, tx=%q", len(paths), transactionID), readTime)
	return items, readTime, transactionID, nil
}

// applyMask implements §4's field-mask projection (S5): only the named,
// possibly nested, dotted field paths survive, when mask is non-empty.
func applyMask(doc store.Document, mask []string) store.Document {
	if len(mask) == 0 {
		return doc
	}
	fields := value.ProjectMask(doc.Fields, mask)
	return store.Document{Fields: fields, CreateTime: doc.CreateTime, UpdateTime: doc.UpdateTime}
}

func statusForTxnErr(err error) *StatusError {
	switch err {
	case txn.ErrUnknownTransaction, txn.ErrTerminal, txn.ErrReadOnly:
		return newStatusError(StatusInvalidArgument, "%v", err)
	default:
		return newStatusError(StatusInternal, "%v", err)
	}
}

// writeOp maps a commit.Write onto the rules-relevant operation it performs
// (§4.7's allow-statement vocabulary): a Delete is always "delete"; an
// Update or Transform is "create" when the target doesn't yet exist, else
// "update".
func (e *Engine) writeOp(w commit.Write) rctx.Operation {
	if w.Kind == commit.Delete {
		return rctx.OpDelete
	}
	if e.store.Exists(w.Path) {
		return rctx.OpUpdate
	}
	return rctx.OpCreate
}

// Commit implements §6's …/documents:commit / §4.3's seven-step algorithm,
// plus (when transactionID is non-empty) the transaction-specific conflict
// check of §4.2 step 2 and the finalization of step 7.
func (e *Engine) Commit(writes []commit.Write, transactionID string, req rctx.Request) ([]commit.Result, time.Time, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var tx *txn.Transaction
	if transactionID != "" {
		t, err := e.txns.RequireActiveReadWrite(transactionID)
		if err != nil {
			return nil, time.Time{}, statusForTxnErr(err)
		}
		tx = t
		tx.Touch(now())

		if err := txn.Conflicts(tx, func(path string) txn.CurrentState {
			doc, ok := e.store.Get(path)
			if !ok {
				return txn.CurrentState{}
			}
			return txn.CurrentState{Exists: true, UpdateTime: doc.UpdateTime}
		}); err != nil {
			return nil, time.Time{}, newStatusError(StatusAborted, "%v", err)
		}
	}

	if err := commit.Validate(writes); err != nil {
		return nil, time.Time{}, newStatusError(StatusInvalidArgument, "%v", err)
	}
	for _, w := range writes {
		ok, reason, err := e.authorizeOp(w.Path, e.writeOp(w), req)
		if err != nil {
			return nil, time.Time{}, newStatusError(StatusInvalidArgument, "%v", err)
		}
		if !ok {
			return nil, time.Time{}, PermissionDenied(w.Path, reason)
		}
	}

	results, commitTime, err := commit.Apply(e.store, e.clock, writes)
	if err != nil {
		return nil, time.Time{}, statusForCommitErr(err)
	}

	if tx != nil {
		e.txns.Commit(tx)
	}
	e.auditor.Record("commit", fmt.Sprintf("%d writes, tx=%q", len(writes), transactionID), commitTime)
	return results, commitTime, nil
}

func statusForCommitErr(err error) *StatusError {
	switch {
	case errors.Is(err, commit.ErrInvalidArgument):
		return newStatusError(StatusInvalidArgument, "%v", err)
	case errors.Is(err, precondition.ErrAlreadyExists):
		return newStatusError(StatusAlreadyExists, "%v", err)
	case errors.Is(err, precondition.ErrFailedPrecondition):
		return newStatusError(StatusFailedPrecondition, "%v", err)
	default:
		return newStatusError(StatusInternal, "%v", err)
	}
}

// BeginTransaction implements §6's …/documents:beginTransaction.
func (e *Engine) BeginTransaction(readOnly bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.txns.Begin(readOnly, now())
	e.auditor.Record("beginTransaction", fmt.Sprintf("id=%s readOnly=%t", t.ID, readOnly), t.StartTime)
	return t.ID, nil
}

// Rollback implements §6's …/documents:rollback.
func (e *Engine) Rollback(transactionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.txns.RequireActive(transactionID)
	if err != nil {
		return statusForTxnErr(err)
	}
	e.txns.Rollback(t)
	e.auditor.Record("rollback", fmt.Sprintf("id=%s", transactionID), now())
	return nil
}

// Sweep expires idle/terminal transactions past idleTimeout/retention (§9
// D.2, §5's "idle-timeout policy"). Intended to be called periodically by a
// background ticker (see api's sweeper).
func (e *Engine) Sweep(idleTimeout, retention time.Duration) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.txns.Sweep(now(), idleTimeout, retention)
}

// DocumentCount reports the number of stored documents (diagnostic use,
// e.g. a health endpoint).
func (e *Engine) DocumentCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Len()
}
