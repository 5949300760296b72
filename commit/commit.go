/*
Package commit implements the Commit Coordinator (§4.3): the seven-step
algorithm that validates a batch of writes, runs the precondition pass,
assigns a single commit timestamp, and applies every write atomically.

Grounded on generic/request.go and timeoff/request.go's multi-step
validate-then-apply pipeline (each step can abort the whole request before
any state changes); this package generalizes that pipeline from a single
domain request to an arbitrary batch of document writes.
*/
package commit

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/docuhearth/docpath"
	"github.com/warp/docuhearth/internal/clock"
	"github.com/warp/docuhearth/precondition"
	"github.com/warp/docuhearth/store"
	"github.com/warp/docuhearth/transform"
	"github.com/warp/docuhearth/value"
)

// MaxWrites is the per-commit write-count ceiling (§4.3 step 1, §8 boundary
// behaviors: "max 500 writes per commit").
const MaxWrites = 500

// ErrInvalidArgument is returned for malformed paths or an oversized batch.
var ErrInvalidArgument = errors.New("commit: invalid argument")

// Kind identifies which of the three write variants a Write is (§3 "Write
// operation").
type Kind int

const (
	Update Kind = iota
	Delete
	Transform
)

// Write is one entry of a commit batch.
type Write struct {
	Kind Kind
	Path string

	// Fields/UpdateMask are used by Update: Fields is the new field set;
	// if UpdateMask is non-nil, only the masked paths are merged into the
	// existing document, else Fields replaces it wholesale.
	Fields     map[string]value.Value
	UpdateMask []string

	// FieldTransforms is used by both Update (applied after the
	// Fields/UpdateMask step, per §4.3 step 5) and Transform (applied
	// directly to the existing document).
	FieldTransforms []transform.FieldTransform

	Precondition precondition.Precondition
}

// Result is one writeResults[i] entry (§4.3 step 6).
type Result struct {
	UpdateTime       time.Time
	TransformResults []value.Value
}

// Validate checks step 1 of §4.3: every path well-formed, and the batch
// size within bounds.
func Validate(writes []Write) error {
	if len(writes) > MaxWrites {
		return fmt.Errorf("%w: %d writes exceeds the %d-write limit", ErrInvalidArgument, len(writes), MaxWrites)
	}
	for _, w := range writes {
		if _, err := docpath.Parse(w.Path); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	return nil
}

func currentState(s *store.Memory, path string) precondition.CurrentState {
	doc, ok := s.Get(path)
	if !ok {
		return precondition.CurrentState{}
	}
	return precondition.CurrentState{Exists: true, UpdateTime: doc.UpdateTime}
}

// PreconditionPass runs step 3 of §4.3 against every write in order,
// returning the first failure (the whole batch aborts on any failure, so
// callers never need more than the first).
func PreconditionPass(s *store.Memory, writes []Write) error {
	for _, w := range writes {
		if w.Precondition.IsZero() {
			continue
		}
		outcome := precondition.Check(w.Precondition, currentState(s, w.Path))
		if err := outcome.Err(); err != nil {
			return fmt.Errorf("%s: %w", w.Path, err)
		}
	}
	return nil
}

// Apply runs the full Commit Coordinator algorithm (§4.3 steps 1, 3-6; step
// 2's transaction-specific conflict check and step 7's transaction
// finalization are the caller's responsibility — see engine.Engine, which
// is the only caller and holds the transactional state this package
// doesn't know about). s is mutated only if every step succeeds.
func Apply(s *store.Memory, clk *clock.Clock, writes []Write) ([]Result, time.Time, error) {
	if err := Validate(writes); err != nil {
		return nil, time.Time{}, err
	}
	if err := PreconditionPass(s, writes); err != nil {
		return nil, time.Time{}, err
	}

	commitTime := clk.Next()
	commitTimeValue := value.Timestamp(commitTime)
	results := make([]Result, len(writes))

	for i, w := range writes {
		switch w.Kind {
		case Update:
			existing, existed := s.Get(w.Path)
			fields := existing.Fields
			if w.UpdateMask != nil {
				fields = value.MergeMask(fields, w.Fields, w.UpdateMask)
			} else {
				fields = make(map[string]value.Value, len(w.Fields))
				for k, v := range w.Fields {
					fields[k] = value.Clone(v)
				}
			}
			var transformResults []value.Value
			if len(w.FieldTransforms) > 0 {
				fields, transformResults = transform.Apply(fields, commitTimeValue, w.FieldTransforms)
			}
			createTime := commitTime
			if existed {
				createTime = existing.CreateTime
			}
			s.Set(w.Path, store.Document{Fields: fields, CreateTime: createTime, UpdateTime: commitTime})
			results[i] = Result{UpdateTime: commitTime, TransformResults: transformResults}

		case Delete:
			s.Delete(w.Path)
			results[i] = Result{UpdateTime: commitTime}

		case Transform:
			existing, existed := s.Get(w.Path)
			fields, transformResults := transform.Apply(existing.Fields, commitTimeValue, w.FieldTransforms)
			createTime := commitTime
			if existed {
				createTime = existing.CreateTime
			}
			s.Set(w.Path, store.Document{Fields: fields, CreateTime: createTime, UpdateTime: commitTime})
			results[i] = Result{UpdateTime: commitTime, TransformResults: transformResults}
		}
	}

	return results, commitTime, nil
}
