package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Ingest pipeline error codes.
const (
	ErrCodeMalformedRecord          ErrorCode = "ETL_001"
	ErrCodeTransientStore           ErrorCode = "ETL_002"
	ErrCodeBatchCommitFailed        ErrorCode = "ETL_003"
	ErrCodeIdentityResolutionFailed ErrorCode = "ETL_004"
	ErrCodeStoreConnection          ErrorCode = "ETL_005"
	ErrCodeSourceUnavailable        ErrorCode = "ETL_006"
	ErrCodeRunLockUnavailable       ErrorCode = "ETL_007"
)

// Aliases kept short for call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")

	CodeDatabaseError     = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeExternalService
	CodeStorageError      = ErrCodeExternalService
)

// ErrorCodeExitStatus maps ErrorCodes to process exit statuses used by the CLI.
// Codes not listed exit with 1.
var ErrorCodeExitStatus = map[ErrorCode]int{
	ErrCodeBadRequest:               2,
	ErrCodeValidation:               2,
	ErrCodeStoreConnection:          3,
	ErrCodeSourceUnavailable:        4,
	ErrCodeIdentityResolutionFailed: 5,
	ErrCodeBatchCommitFailed:        6,
	ErrCodeRunLockUnavailable:       7,
}

var errorCodeMessages = map[ErrorCode]string{
	ErrCodeInternal:                 "internal error",
	ErrCodeBadRequest:               "bad request",
	ErrCodeNotFound:                 "resource not found",
	ErrCodeConflict:                 "resource conflict",
	ErrCodeServiceUnavailable:       "service unavailable",
	ErrCodeTimeout:                  "operation timed out",
	ErrCodeValidation:               "validation failed",
	ErrCodeSerialization:            "serialization failed",
	ErrCodeDatabaseError:            "database error",
	ErrCodeCacheError:               "cache error",
	ErrCodeExternalService:          "external service error",
	ErrCodeFeatureDisabled:          "feature disabled",
	ErrCodeMalformedRecord:          "malformed record",
	ErrCodeTransientStore:           "transient store error",
	ErrCodeBatchCommitFailed:        "batch commit failed",
	ErrCodeIdentityResolutionFailed: "identity resolution failed",
	ErrCodeStoreConnection:          "store connection failed",
	ErrCodeSourceUnavailable:        "source unavailable",
	ErrCodeRunLockUnavailable:       "run lock held by another process",
}

// ExitStatusForCode returns the process exit status for the given code.
func ExitStatusForCode(code ErrorCode) int {
	if code == CodeOK {
		return 0
	}
	if status, ok := ErrorCodeExitStatus[code]; ok {
		return status
	}
	return 1
}

// DefaultMessageForCode returns a default message for the given error code.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := errorCodeMessages[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of the given error code.
func ModuleForCode(code ErrorCode) string {
	s := string(code)
	if idx := strings.Index(s, "_"); idx != -1 {
		return s[:idx]
	}
	return "UNKNOWN"
}

// IsPipelineError reports whether the code belongs to the ingest pipeline.
func IsPipelineError(code ErrorCode) bool {
	return ModuleForCode(code) == "ETL"
}

//Personal.AI order the ending
