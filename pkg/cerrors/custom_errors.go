package cerrors

import (
	"encoding/json"
	"fmt"

	"github.com/palantir/stacktrace"
)

type ErrorType string

const (
	ErrorTypeNonUserFriendly ErrorType = "NON_USER_FRIENDLY_ERROR"
	ErrorTypeGeneric         ErrorType = "GENERIC_ERROR"
	ErrorTypeConfig          ErrorType = "CONFIG_ERROR"
	ErrorTypeInjection       ErrorType = "INJECTION_ERROR"
	ErrorTypeSteadyState     ErrorType = "STEADY_STATE_CHECK_ERROR"
	ErrorTypeAborted         ErrorType = "CHAOS_ABORTED"
	ErrorTypeTimeout         ErrorType = "TIMEOUT"
	ErrorTypeChaosInject     ErrorType = "CHAOS_INJECT_ERROR"
	ErrorTypeChaosRevert     ErrorType = "CHAOS_REVERT_ERROR"
	ErrorTypeSLOValidation   ErrorType = "SLO_VALIDATION_ERROR"
)

type userFriendly interface {
	UserFriendly() bool
	ErrorType() ErrorType
}

// IsUserFriendly returns true if err is marked as safe to present in the run report
func IsUserFriendly(err error) bool {
	ufe, ok := err.(userFriendly)
	return ok && ufe.UserFriendly()
}

// GetErrorType returns the type of error if the error is user-friendly
func GetErrorType(err error) ErrorType {
	if ufe, ok := err.(userFriendly); ok {
		return ufe.ErrorType()
	}
	return ErrorTypeNonUserFriendly
}

func GetRootCauseAndErrorCode(err error) (string, ErrorType) {
	rootCause := stacktrace.RootCause(err)
	errorType := GetErrorType(rootCause)
	if !IsUserFriendly(rootCause) {
		return err.Error(), errorType
	}
	return rootCause.Error(), errorType
}

// Error is the user-friendly error carried across the engine boundaries.
// ErrorCode maps the failure taxonomy: config, injection (no fallback),
// steady-state, abort, timeout, inject/revert mechanism failures.
type Error struct {
	Source    string    `json:"source,omitempty"`
	ErrorCode ErrorType `json:"errorCode"`
	Phase     string    `json:"phase,omitempty"`
	Target    string    `json:"target,omitempty"`
	Reason    string    `json:"reason"`
}

func (e Error) Error() string {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("{errorCode: %s, reason: %s}", e.ErrorCode, e.Reason)
	}
	return string(b)
}

func (e Error) UserFriendly() bool {
	return true
}

func (e Error) ErrorType() ErrorType {
	return e.ErrorCode
}
