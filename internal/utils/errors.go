package utils

import (
	"fmt"

	"nfsync/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Configuration errors (10-19)
	ExitConfigInvalid  = 10
	ExitConfigNotFound = 11
	// Mount errors (20-29)
	ExitMountFailed      = 20
	ExitUmountFailed     = 21
	ExitNotMounted       = 22
	ExitShareUnreachable = 23
	// Sync errors (30-39)
	ExitSyncFailed         = 30
	ExitSyncPartialFailure = 31
	ExitSyncActive         = 32
	ExitCancelled          = 33
	// Credential errors (40-49)
	ExitCredentialsMissing = 40
	ExitKeyringUnavailable = 41
	// Validation errors (50-59)
	ExitInvalidArgument = 50
	ExitInvalidPath     = 51
	// Environment errors (60-69)
	ExitBinaryMissing = 60
	ExitTimeout       = 61
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeConfigInvalid      = "CONFIG_INVALID"
	ErrCodeConfigNotFound     = "CONFIG_NOT_FOUND"
	ErrCodeMountFailed        = "MOUNT_FAILED"
	ErrCodeUmountFailed       = "UMOUNT_FAILED"
	ErrCodeNotMounted         = "NOT_MOUNTED"
	ErrCodeShareUnreachable   = "SHARE_UNREACHABLE"
	ErrCodeSyncFailed         = "SYNC_FAILED"
	ErrCodeSyncPartialFailure = "SYNC_PARTIAL_FAILURE"
	ErrCodeSyncActive         = "SYNC_ACTIVE"
	ErrCodeCancelled          = "CANCELLED"
	ErrCodeCredentialsMissing = "CREDENTIALS_MISSING"
	ErrCodeKeyringUnavailable = "KEYRING_UNAVAILABLE"
	ErrCodeInvalidArgument    = "INVALID_ARGUMENT"
	ErrCodeInvalidPath        = "INVALID_PATH"
	ErrCodeBinaryMissing      = "BINARY_MISSING"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeUnknown            = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithDetail(detail string) *CLIErrorBuilder {
	b.err.Detail = detail
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeConfigInvalid:      ExitConfigInvalid,
		ErrCodeConfigNotFound:     ExitConfigNotFound,
		ErrCodeMountFailed:        ExitMountFailed,
		ErrCodeUmountFailed:       ExitUmountFailed,
		ErrCodeNotMounted:         ExitNotMounted,
		ErrCodeShareUnreachable:   ExitShareUnreachable,
		ErrCodeSyncFailed:         ExitSyncFailed,
		ErrCodeSyncPartialFailure: ExitSyncPartialFailure,
		ErrCodeSyncActive:         ExitSyncActive,
		ErrCodeCancelled:          ExitCancelled,
		ErrCodeCredentialsMissing: ExitCredentialsMissing,
		ErrCodeKeyringUnavailable: ExitKeyringUnavailable,
		ErrCodeInvalidArgument:    ExitInvalidArgument,
		ErrCodeInvalidPath:        ExitInvalidPath,
		ErrCodeBinaryMissing:      ExitBinaryMissing,
		ErrCodeTimeout:            ExitTimeout,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}
