/*
Package precondition implements the Commit Coordinator's precondition pass
(§4.3 step 3): given a write's optional precondition and the current
document state, decide whether the write may proceed.

Grounded on generic/projection.go's guard-clause style (a short chain of
independent boolean checks, each returning a distinct outcome) — no teacher
package models optimistic preconditions directly, so this one is built
directly from that idiom rather than adapted from a specific teacher type.
*/
package precondition

import (
	"errors"
	"time"
)

// Outcome is the result of evaluating a precondition against current store
// state.
type Outcome int

const (
	// Pass means the write may proceed.
	Pass Outcome = iota
	// FailedPrecondition means exists:true was violated (document missing)
	// or updateTime did not match, including updateTime checked against a
	// missing document.
	FailedPrecondition
	// AlreadyExists means exists:false was violated (document present).
	AlreadyExists
)

// ErrFailedPrecondition and ErrAlreadyExists are the sentinel errors Check
// wraps into its returned error, matching the status taxonomy of §7.
var (
	ErrFailedPrecondition = errors.New("precondition: failed precondition")
	ErrAlreadyExists      = errors.New("precondition: already exists")
)

// Precondition is a write's optional guard (§4 Types: "Precondition{exists?
// bool, updateTime? Timestamp}"). A zero Precondition (both pointers nil)
// means "no precondition": it always passes.
type Precondition struct {
	Exists     *bool
	UpdateTime *time.Time
}

// IsZero reports whether p specifies no constraint at all.
func (p Precondition) IsZero() bool {
	return p.Exists == nil && p.UpdateTime == nil
}

// CurrentState is what the precondition pass compares against: whether a
// document exists at the target path, and if so its updateTime.
type CurrentState struct {
	Exists     bool
	UpdateTime time.Time
}

// Check evaluates p against current (§4.3 step 3):
//   - no precondition -> Pass
//   - exists:true on missing document -> FailedPrecondition
//   - exists:false on present document -> AlreadyExists
//   - updateTime mismatch, or updateTime checked against a missing
//     document -> FailedPrecondition
func Check(p Precondition, current CurrentState) Outcome {
	if p.Exists != nil {
		if *p.Exists && !current.Exists {
			return FailedPrecondition
		}
		if !*p.Exists && current.Exists {
			return AlreadyExists
		}
	}
	if p.UpdateTime != nil {
		if !current.Exists || !current.UpdateTime.Equal(*p.UpdateTime) {
			return FailedPrecondition
		}
	}
	return Pass
}

// Err converts a non-Pass Outcome to its sentinel error, or nil for Pass.
func (o Outcome) Err() error {
	switch o {
	case FailedPrecondition:
		return ErrFailedPrecondition
	case AlreadyExists:
		return ErrAlreadyExists
	default:
		return nil
	}
}
