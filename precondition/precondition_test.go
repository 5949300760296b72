package precondition_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/docuhearth/precondition"
)

func boolPtr(b bool) *bool { return &b }

func TestCheck_NoPreconditionAlwaysPasses(t *testing.T) {
	out := precondition.Check(precondition.Precondition{}, precondition.CurrentState{})
	require.Equal(t, precondition.Pass, out)
	require.NoError(t, out.Err())
}

func TestCheck_ExistsTrueOnMissingFails(t *testing.T) {
	out := precondition.Check(
		precondition.Precondition{Exists: boolPtr(true)},
		precondition.CurrentState{Exists: false},
	)
	require.Equal(t, precondition.FailedPrecondition, out)
	require.ErrorIs(t, out.Err(), precondition.ErrFailedPrecondition)
}

func TestCheck_ExistsFalseOnPresentAlreadyExists(t *testing.T) {
	out := precondition.Check(
		precondition.Precondition{Exists: boolPtr(false)},
		precondition.CurrentState{Exists: true},
	)
	require.Equal(t, precondition.AlreadyExists, out)
	require.ErrorIs(t, out.Err(), precondition.ErrAlreadyExists)
}

func TestCheck_UpdateTimeMatch(t *testing.T) {
	now := time.Now().UTC()
	out := precondition.Check(
		precondition.Precondition{UpdateTime: &now},
		precondition.CurrentState{Exists: true, UpdateTime: now},
	)
	require.Equal(t, precondition.Pass, out)
}

func TestCheck_UpdateTimeMismatchFails(t *testing.T) {
	now := time.Now().UTC()
	other := now.Add(time.Second)
	out := precondition.Check(
		precondition.Precondition{UpdateTime: &now},
		precondition.CurrentState{Exists: true, UpdateTime: other},
	)
	require.Equal(t, precondition.FailedPrecondition, out)
}

func TestCheck_UpdateTimeAgainstMissingDocumentFails(t *testing.T) {
	now := time.Now().UTC()
	out := precondition.Check(
		precondition.Precondition{UpdateTime: &now},
		precondition.CurrentState{Exists: false},
	)
	require.Equal(t, precondition.FailedPrecondition, out)
}

func TestIsZero(t *testing.T) {
	require.True(t, precondition.Precondition{}.IsZero())
	require.False(t, precondition.Precondition{Exists: boolPtr(true)}.IsZero())
}
