// errors.go: structured error handling for Harmonia engine operations
//
// This file provides the error types used across the engine core, built on
// the go-errors library. The core has no recoverable errors: corruption,
// contract violations, inconsistent input and capacity overruns halt the
// calling goroutine with a panic carrying one of these coded errors.
// Trace errors are the one policy-driven class; see TraceErrorPolicy.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package harmonia

import (
	goerrors "errors"
	"strconv"

	"github.com/agilira/go-errors"
)

// Error codes for Harmonia engine operations
const (
	// Configuration errors (1xxx)
	ErrCodeInvalidConfig errors.ErrorCode = "HARMONIA_INVALID_CONFIG"

	// Container errors (2xxx)
	ErrCodeCorruptedSegment   errors.ErrorCode = "HARMONIA_CORRUPTED_SEGMENT"
	ErrCodeCapacityExceeded   errors.ErrorCode = "HARMONIA_CAPACITY_EXCEEDED"
	ErrCodeSegmentOverReturn  errors.ErrorCode = "HARMONIA_SEGMENT_OVER_RETURN"
	ErrCodeInvalidSegmentSize errors.ErrorCode = "HARMONIA_INVALID_SEGMENT_SIZE"

	// Engine errors (3xxx)
	ErrCodeContractViolation errors.ErrorCode = "HARMONIA_CONTRACT_VIOLATION"
	ErrCodeTraceError        errors.ErrorCode = "HARMONIA_TRACE_ERROR"
	ErrCodeInconsistentInput errors.ErrorCode = "HARMONIA_INCONSISTENT_INPUT"
	ErrCodeNotImplemented    errors.ErrorCode = "HARMONIA_NOT_IMPLEMENTED"

	// Serialization errors (4xxx)
	ErrCodeInvalidBatch errors.ErrorCode = "HARMONIA_INVALID_BATCH"
)

// Common error messages
const (
	msgInvalidConfig      = "invalid engine configuration"
	msgCorruptedSegment   = "corrupted segment token stream"
	msgCapacityExceeded   = "segment capacity exceeded"
	msgSegmentOverReturn  = "more segments returned than acquired"
	msgInvalidSegmentSize = "segment size below header size"
	msgContractViolation  = "caller contract violated"
	msgTraceError         = "indicator has an empty inverse-trace set"
	msgInconsistentInput  = "non-hypothetical duple with no useful indicator"
	msgNotImplemented     = "operation not implemented"
	msgInvalidBatch       = "malformed segment batch buffer"
)

// NewErrInvalidConfig creates an error for an invalid configuration field
func NewErrInvalidConfig(field string, value interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidConfig, msgInvalidConfig, map[string]interface{}{
		"field": field,
		"value": value,
	})
}

// NewErrCorruptedSegment creates an error for a malformed segment body.
// Corruption is never recoverable at this layer; callers panic with it.
func NewErrCorruptedSegment(detail string) error {
	return errors.NewWithField(ErrCodeCorruptedSegment, msgCorruptedSegment, "detail", detail).
		WithSeverity("critical")
}

// NewErrCapacityExceeded creates an error for an allocation overrun
func NewErrCapacityExceeded(operation string, requested uint64) error {
	return errors.NewWithContext(ErrCodeCapacityExceeded, msgCapacityExceeded, map[string]interface{}{
		"operation": operation,
		"requested": requested,
	}).WithSeverity("critical")
}

// NewErrSegmentOverReturn creates an error for unbalanced Return calls
func NewErrSegmentOverReturn() error {
	return errors.New(ErrCodeSegmentOverReturn, msgSegmentOverReturn).WithSeverity("critical")
}

// NewErrInvalidSegmentSize creates an error for an undersized acquisition
func NewErrInvalidSegmentSize(requested uint64) error {
	return errors.NewWithField(ErrCodeInvalidSegmentSize, msgInvalidSegmentSize, "requested", strconv.FormatUint(requested, 10))
}

// NewErrContractViolation creates an error for a broken caller precondition
func NewErrContractViolation(operation string, detail string) error {
	return errors.NewWithContext(ErrCodeContractViolation, msgContractViolation, map[string]interface{}{
		"operation": operation,
		"detail":    detail,
	}).WithSeverity("critical")
}

// NewErrTraceError creates a trace error B for the given stage and indicator
func NewErrTraceError(stage string, indicator int) error {
	return errors.NewWithContext(ErrCodeTraceError, msgTraceError, map[string]interface{}{
		"stage":     stage,
		"indicator": indicator,
	})
}

// NewErrInconsistentInput creates an error for inconsistent duple input
func NewErrInconsistentInput(operation string, duple int) error {
	return errors.NewWithContext(ErrCodeInconsistentInput, msgInconsistentInput, map[string]interface{}{
		"operation": operation,
		"duple":     duple,
	}).WithSeverity("critical")
}

// NewErrNotImplemented creates an error for a recognised but unimplemented option
func NewErrNotImplemented(operation string) error {
	return errors.NewWithField(ErrCodeNotImplemented, msgNotImplemented, "operation", operation)
}

// NewErrInvalidBatch creates an error for a malformed serialized batch
func NewErrInvalidBatch(detail string) error {
	return errors.NewWithField(ErrCodeInvalidBatch, msgInvalidBatch, "detail", detail)
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// IsCorrupted checks if error reports a corrupted segment
func IsCorrupted(err error) bool {
	return errors.HasCode(err, ErrCodeCorruptedSegment)
}

// IsContractViolation checks if error reports a broken caller contract
func IsContractViolation(err error) bool {
	return errors.HasCode(err, ErrCodeContractViolation)
}

// IsTraceError checks if error is a trace error B
func IsTraceError(err error) bool {
	return errors.HasCode(err, ErrCodeTraceError)
}

// IsInconsistentInput checks if error reports inconsistent duple input
func IsInconsistentInput(err error) bool {
	return errors.HasCode(err, ErrCodeInconsistentInput)
}

// IsConfigError checks if error is a configuration error
func IsConfigError(err error) bool {
	return errors.HasCode(err, ErrCodeInvalidConfig)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts context from an error
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var herr *errors.Error
	if goerrors.As(err, &herr) {
		return herr.Context
	}
	return nil
}
