// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for RetailQA.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies RetailQA errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeFileAccess indicates the data source file is missing or unreadable.
	CodeFileAccess ErrorCode = "FILE_ACCESS"

	// CodeSchema indicates a required column is missing or malformed.
	CodeSchema ErrorCode = "SCHEMA_ERROR"

	// CodeRowParse indicates a single row failed numeric/date coercion.
	CodeRowParse ErrorCode = "ROW_PARSE"

	// CodeExternalService indicates an embedding/LLM/vector-store call failed.
	CodeExternalService ErrorCode = "EXTERNAL_SERVICE"

	// CodeEvaluationMiss indicates no numeral could be extracted from an answer.
	CodeEvaluationMiss ErrorCode = "EVALUATION_MISS"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnauthorized indicates credentials are missing or rejected.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// QAError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type QAError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *QAError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *QAError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *QAError) MarshalJSON() ([]byte, error) {
	type Alias QAError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new QAError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *QAError {
	return &QAError{
		Code:        code,
		Message:     msg,
		Err:         cause,
		Context:     make(map[string]interface{}),
		Recoverable: recoverableByDefault(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *QAError) WithContext(key string, value interface{}) *QAError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *QAError) WithRecoverable(recoverable bool) *QAError {
	e.Recoverable = recoverable
	return e
}

// AsQAError attempts to convert an error to a QAError.
// Returns the error as QAError if it is one, or wraps it otherwise.
func AsQAError(err error) *QAError {
	if err == nil {
		return nil
	}
	if qe, ok := err.(*QAError); ok {
		return qe
	}
	// Wrap unknown error as internal
	return New(CodeInternal, "wrapped error", err)
}

// IsFatal reports whether the error should abort startup rather than be
// surfaced per-question. File access and schema problems are fatal; a failed
// external call or a single bad row is not.
func IsFatal(err error) bool {
	qe := AsQAError(err)
	if qe == nil {
		return false
	}
	switch qe.Code {
	case CodeFileAccess, CodeSchema, CodeUnauthorized:
		return true
	}
	return false
}

// recoverableByDefault maps codes to their loop-boundary handling.
func recoverableByDefault(code ErrorCode) bool {
	switch code {
	case CodeRowParse, CodeExternalService, CodeEvaluationMiss:
		return true
	}
	return false
}
