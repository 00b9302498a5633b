package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal", errors.CodeInternal, "unexpected failure"},
		{"malformed", errors.ErrCodeMalformedRecord, "paper identifier is empty"},
		{"lock", errors.ErrCodeRunLockUnavailable, "lock held"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
	assert.Nil(t, errors.Wrapf(nil, errors.CodeInternal, "ignored %d", 1))
	assert.Nil(t, errors.Transient(nil, "ignored"))
}

func TestWrap_PreservesCodeWhenUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeBatchCommitFailed, "commit failed")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")
	assert.Equal(t, errors.ErrCodeBatchCommitFailed, outer.Code)

	explicit := errors.Wrap(inner, errors.CodeInternal, "override")
	assert.Equal(t, errors.CodeInternal, explicit.Code)
}

func TestWrap_MultiLevelChain(t *testing.T) {
	t.Parallel()

	root := stderrors.New("deadlock detected")
	level1 := errors.Transient(root, "commit papers")
	level2 := errors.Wrap(level1, errors.ErrCodeBatchCommitFailed, "batch failed")

	assert.Equal(t, level1, stderrors.Unwrap(level2))
	assert.ErrorIs(t, level2, root)
	assert.True(t, errors.IsTransient(level2))
	assert.True(t, errors.IsCode(level2, errors.ErrCodeBatchCommitFailed))
	assert.Equal(t, errors.ErrCodeBatchCommitFailed, errors.GetCode(level2))
}

// ─────────────────────────────────────────────────────────────────────────────
// Error()
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	t.Parallel()

	bare := errors.New(errors.ErrCodeMalformedRecord, "bad row")
	assert.Equal(t, "[ETL_001] bad row", bare.Error())

	withDetail := bare.WithDetail("row 12")
	assert.Equal(t, "[ETL_001] bad row: row 12", withDetail.Error())

	withCause := withDetail.WithCause(fmt.Errorf("eof"))
	assert.Equal(t, "[ETL_001] bad row: row 12: eof", withCause.Error())
	assert.Empty(t, bare.Detail, "builders must not mutate the receiver")
}

func TestBuilders_NilReceiver(t *testing.T) {
	t.Parallel()
	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

// ─────────────────────────────────────────────────────────────────────────────
// GetCode
// ─────────────────────────────────────────────────────────────────────────────

func TestGetCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", errors.New(errors.ErrCodeStoreConnection, "down"))
	assert.Equal(t, errors.ErrCodeStoreConnection, errors.GetCode(wrapped))
	assert.False(t, errors.IsTransient(wrapped))
}

//Personal.AI order the ending
