/*
Package store implements the Document Store (§4.1): an in-memory mapping
from canonical document path to (fields, createTime, updateTime), plus the
atomic multi-key apply the Commit Coordinator drives.

CONCURRENCY NOTE:

	Memory itself performs no locking. §5 specifies one coarse "engine lock"
	shared by the Document Store, Transaction Manager, and Commit
	Coordinator so that an entire commit's validate/conflict-check/
	precondition/apply sequence is one critical section; that lock lives in
	engine.Engine, which is the only caller of these methods. This mirrors
	generic/store/memory.go, whose own sync.RWMutex played the same "one
	lock covers read and write" role for a narrower interface; here the lock
	is hoisted one level up because more than one package's state
	(documents AND transactions) must be covered by a single acquisition.

SEE ALSO:
  - docstore/txn: transaction lifecycle and read-snapshot caching
  - commit: the only writer of documents, via Memory.Set/Delete
*/
package store

import (
	"sort"
	"time"

	"github.com/warp/docuhearth/value"
)

// Document is a stored document: its fields plus the two invariant
// timestamps of §3 ((i) updateTime >= createTime, (ii) createTime immutable
// after first write, (iii) strictly increasing updateTime across commits).
type Document struct {
	Fields     map[string]value.Value
	CreateTime time.Time
	UpdateTime time.Time
}

// Clone deep-copies a Document so callers can't mutate stored state through
// an aliased fields map.
func (d Document) Clone() Document {
	fields := make(map[string]value.Value, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = value.Clone(v)
	}
	return Document{Fields: fields, CreateTime: d.CreateTime, UpdateTime: d.UpdateTime}
}

// Memory is the in-memory Document Store. Not safe for concurrent use on its
// own; see the package doc comment.
type Memory struct {
	docs map[string]Document
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

// Get returns the document at path, and whether it exists.
func (m *Memory) Get(path string) (Document, bool) {
	d, ok := m.docs[path]
	if !ok {
		return Document{}, false
	}
	return d.Clone(), true
}

// Exists reports whether a document exists at path without copying it.
func (m *Memory) Exists(path string) bool {
	_, ok := m.docs[path]
	return ok
}

// Set stores (or replaces) the document at path.
func (m *Memory) Set(path string, doc Document) {
	m.docs[path] = doc
}

// Delete removes the document at path. No error if absent (§4.3 step 5:
// "delete: remove path; no error if absent").
func (m *Memory) Delete(path string) {
	delete(m.docs, path)
}

// CollectionGroup returns every stored path whose second-to-last path
// segment equals collectionID, sorted for determinism (§4.8's
// collection-group notion applied to stored paths). lastSegmentIndex
// extracts that segment from a path.
func (m *Memory) CollectionGroup(collectionID string, lastSegmentIndex func(path string) (string, bool)) []string {
	var out []string
	for p := range m.docs {
		if seg, ok := lastSegmentIndex(p); ok && seg == collectionID {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Len reports the number of stored documents (diagnostic/test use only).
func (m *Memory) Len() int {
	return len(m.docs)
}
