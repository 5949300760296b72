/*
Package txn implements the Transaction Manager (§4.2): transaction
lifecycle, per-transaction read snapshots, and commit-time conflict
detection.

Grounded on generic/assignment.go's ConsumptionDistributor, whose core shape
— walk an ordered collection, short-circuit the moment a condition fails —
is reused here for conflict detection: walk the read snapshot and stop at
the first path whose current state has drifted.

Like store.Memory, Manager performs no internal locking; engine.Engine holds
the one engine lock across every method call here (§5).
*/
package txn

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State is a transaction's lifecycle state (§3: "a transaction is in
// exactly one of {active, committed, rolledBack}").
type State int

const (
	StateActive State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolledBack"
	default:
		return "unknown"
	}
}

// ErrUnknownTransaction is returned for an id the Manager has never issued,
// or has garbage-collected.
var ErrUnknownTransaction = errors.New("txn: unknown transaction")

// ErrTerminal is returned when an operation targets a transaction that has
// already committed or rolled back.
var ErrTerminal = errors.New("txn: transaction is terminal")

// ErrReadOnly is returned when a write (or commit-with-writes) targets a
// read-only transaction.
var ErrReadOnly = errors.New("txn: transaction is read-only")

// SnapshotEntry records what a transaction observed on its first read of a
// path: whether the document existed, and its updateTime if so.
type SnapshotEntry struct {
	Exists     bool
	UpdateTime time.Time
}

// Transaction is a single optimistic-concurrency transaction (§3).
type Transaction struct {
	ID           string
	ReadOnly     bool
	StartTime    time.Time
	LastActivity time.Time
	State        State

	// ReadSnapshot caches the first (exists?, updateTime) observed per path.
	ReadSnapshot map[string]SnapshotEntry
}

// Manager owns every Transaction's lifecycle. Zero value is not usable; use
// NewManager.
type Manager struct {
	byID map[string]*Transaction
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{byID: make(map[string]*Transaction)}
}

// newID returns a random 128-bit id encoded as 32 hex characters (§4.2):
// a v4 UUID with its grouping dashes stripped.
func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Begin creates a new active transaction.
func (m *Manager) Begin(readOnly bool, now time.Time) *Transaction {
	t := &Transaction{
		ID:           newID(),
		ReadOnly:     readOnly,
		StartTime:    now,
		LastActivity: now,
		State:        StateActive,
		ReadSnapshot: make(map[string]SnapshotEntry),
	}
	m.byID[t.ID] = t
	return t
}

// Get returns the transaction by id, or ErrUnknownTransaction.
func (m *Manager) Get(id string) (*Transaction, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, ErrUnknownTransaction
	}
	return t, nil
}

// RequireActive returns the transaction if it exists and is still active,
// else the appropriate sentinel error (§4.2: "any attempt to reuse a
// terminal transaction yields INVALID_ARGUMENT").
func (m *Manager) RequireActive(id string) (*Transaction, error) {
	t, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if t.State != StateActive {
		return nil, ErrTerminal
	}
	return t, nil
}

// RequireActiveReadWrite is RequireActive plus the read-only check required
// before any write or commit (§4.2: "writes under a read-only transaction
// yield INVALID_ARGUMENT").
func (m *Manager) RequireActiveReadWrite(id string) (*Transaction, error) {
	t, err := m.RequireActive(id)
	if err != nil {
		return nil, err
	}
	if t.ReadOnly {
		return nil, ErrReadOnly
	}
	return t, nil
}

// CachedRead returns a transaction's cached observation for path, if any.
func (t *Transaction) CachedRead(path string) (SnapshotEntry, bool) {
	e, ok := t.ReadSnapshot[path]
	return e, ok
}

// RecordRead caches the first read of path in this transaction. Subsequent
// calls for the same path are no-ops (§4.1: "subsequent reads of the same
// path in the same transaction return the cached document").
func (t *Transaction) RecordRead(path string, exists bool, updateTime time.Time) {
	if _, ok := t.ReadSnapshot[path]; ok {
		return
	}
	t.ReadSnapshot[path] = SnapshotEntry{Exists: exists, UpdateTime: updateTime}
}

// CurrentState is what the Document Store reports for a path at commit
// time; passed to Conflicts by the caller so this package doesn't need to
// depend on store.Memory directly.
type CurrentState struct {
	Exists     bool
	UpdateTime time.Time
}

// ErrConflict is returned by Conflicts when a transaction's read snapshot no
// longer matches the current store state.
var ErrConflict = errors.New("txn: conflicting read snapshot")

// Conflicts walks t's read snapshot and reports whether any path's current
// state has drifted from what the transaction observed (§4.2: "Conflict
// detection"). current is called once per snapshot path.
func Conflicts(t *Transaction, current func(path string) CurrentState) error {
	for path, snap := range t.ReadSnapshot {
		now := current(path)
		if now.Exists != snap.Exists {
			return fmt.Errorf("%w: path %q existence changed", ErrConflict, path)
		}
		if snap.Exists && !now.UpdateTime.Equal(snap.UpdateTime) {
			return fmt.Errorf("%w: path %q updateTime changed", ErrConflict, path)
		}
	}
	return nil
}

// Commit marks a transaction committed. Caller must have already run
// Conflicts and applied writes.
func (m *Manager) Commit(t *Transaction) {
	t.State = StateCommitted
}

// Rollback marks a transaction rolled back (§4.2: "active -> rolledBack via
// rollback").
func (m *Manager) Rollback(t *Transaction) {
	t.State = StateRolledBack
}

// Touch refreshes a transaction's idle-timeout clock; called on every
// operation that references the transaction.
func (t *Transaction) Touch(now time.Time) {
	t.LastActivity = now
}

// Sweep removes transactions that have been idle past idleTimeout (if still
// active) or terminal for longer than retention (§9 Open Question #3:
// terminal records are retained briefly to answer duplicate-operation
// queries, then garbage-collected). Returns the ids removed.
func (m *Manager) Sweep(now time.Time, idleTimeout, retention time.Duration) []string {
	var removed []string
	for id, t := range m.byID {
		switch t.State {
		case StateActive:
			if now.Sub(t.LastActivity) > idleTimeout {
				delete(m.byID, id)
				removed = append(removed, id)
			}
		default:
			if now.Sub(t.LastActivity) > retention {
				delete(m.byID, id)
				removed = append(removed, id)
			}
		}
	}
	return removed
}

// Len reports the number of tracked transactions (diagnostic/test use).
func (m *Manager) Len() int {
	return len(m.byID)
}
