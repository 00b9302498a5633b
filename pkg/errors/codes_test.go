package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "ETL_003", ErrCodeBatchCommitFailed.String())
}

func TestExitStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{CodeOK, 0},
		{ErrCodeInternal, 1},
		{ErrCodeValidation, 2},
		{ErrCodeStoreConnection, 3},
		{ErrCodeBatchCommitFailed, 6},
		{ErrorCode("UNKNOWN"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExitStatusForCode(tt.code), tt.code)
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "malformed record", DefaultMessageForCode(ErrCodeMalformedRecord))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE")))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeDatabaseError))
	assert.Equal(t, "ETL", ModuleForCode(ErrCodeTransientStore))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("plain")))
	assert.True(t, IsPipelineError(ErrCodeIdentityResolutionFailed))
	assert.False(t, IsPipelineError(ErrCodeInternal))
}

func TestErrorCodes_Format(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range errorCodeMessages {
		assert.Regexp(t, re, code.String())
	}
}

//Personal.AI order the ending
