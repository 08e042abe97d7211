package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal       ErrorCode = "COMMON_001"
	ErrCodeBadRequest     ErrorCode = "COMMON_002"
	ErrCodeNotFound       ErrorCode = "COMMON_003"
	ErrCodeConflict       ErrorCode = "COMMON_004"
	ErrCodeTimeout        ErrorCode = "COMMON_005"
	ErrCodeValidation     ErrorCode = "COMMON_006"
	ErrCodeSerialization  ErrorCode = "COMMON_007"
	ErrCodeDatabaseError  ErrorCode = "COMMON_008"
	ErrCodeCacheError     ErrorCode = "COMMON_009"
	ErrCodeNotImplemented ErrorCode = "COMMON_010"
)

// Toolchain configuration error codes.  These always indicate a deployment
// problem (missing executables or data files) and are never retried.
const (
	ErrCodeToolchainMissing ErrorCode = "CFG_001"
	ErrCodeToolchainInvalid ErrorCode = "CFG_002"
)

// Grid resolution error codes.
const (
	ErrCodeGridInvalidSpec ErrorCode = "GRID_001"
	ErrCodeGridNoCenter    ErrorCode = "GRID_002"
	ErrCodeGridNoSize      ErrorCode = "GRID_003"
)

// External tool execution error codes.
const (
	ErrCodeToolExecFailed    ErrorCode = "TOOL_001"
	ErrCodeToolTimeout       ErrorCode = "TOOL_002"
	ErrCodeToolOutputMissing ErrorCode = "TOOL_003"
)

// Docking pipeline error codes.
const (
	ErrCodeInputNotFound      ErrorCode = "DOCK_001"
	ErrCodeReceptorPrepFailed ErrorCode = "DOCK_002"
	ErrCodeLigandPrepFailed   ErrorCode = "DOCK_003"
	ErrCodeFieldFileMissing   ErrorCode = "DOCK_004"
)

// Batch process error codes.
const (
	ErrCodeProcessNotFound    ErrorCode = "PROC_001"
	ErrCodeProcessNoReceptors ErrorCode = "PROC_002"
	ErrCodeProcessNoLigands   ErrorCode = "PROC_003"
	ErrCodeProcessSplitFailed ErrorCode = "PROC_004"
)

// Messaging error codes.
const (
	ErrCodeQueuePublishFailed ErrorCode = "MQ_001"
	ErrCodeQueueConsumeFailed ErrorCode = "MQ_002"
)

// retryableCodes enumerates the failure categories a job-dispatch boundary
// may retry.  Configuration and input errors are deliberately absent: the
// same inputs will fail the same way on every attempt.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeToolExecFailed:     true,
	ErrCodeToolTimeout:        true,
	ErrCodeToolOutputMissing:  true,
	ErrCodeDatabaseError:      true,
	ErrCodeCacheError:         true,
	ErrCodeQueuePublishFailed: true,
	ErrCodeInternal:           true,
}

// IsRetryable reports whether the first AppError in err's chain carries a
// code that a bounded retry policy is allowed to re-attempt.
func IsRetryable(err error) bool {
	return retryableCodes[GetCode(err)]
}

// Family returns the code's prefix up to the first underscore ("TOOL",
// "GRID", ...), used as a low-cardinality metrics label.
func (c ErrorCode) Family() string {
	if i := strings.IndexByte(string(c), '_'); i > 0 {
		return string(c)[:i]
	}
	return string(c)
}
