package handlers

import (
	"errors"
	"fmt"

	"supermcp/internal/registry"
)

// Code is one of the fixed JSON-RPC-style integers supermcp's external
// interface promises for every handler failure.
type Code int

const (
	CodeInvalidParams          Code = -32602
	CodePackageNotFound        Code = -32001
	CodeToolNotFound           Code = -32002
	CodeArgValidationFailed    Code = -32003
	CodePackageUnavailable     Code = -32004
	CodeAuthRequired           Code = -32005
	CodeAuthIncomplete         Code = -32006
	CodeDownstreamError        Code = -32007
	CodeToolBlocked            Code = -32008
	CodeResourceNotFound       Code = -32010
	CodeCapabilityNotSupported Code = -32011
	CodeInternalError          Code = -32603
)

// Error is the typed failure every handler returns instead of a bare error,
// carrying the integer code the server front end puts on the wire.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// classifyRegistryError maps a registry-layer failure onto a handler error
// code: an unknown package id becomes PACKAGE_NOT_FOUND, everything else is
// treated as a downstream/transport failure.
func classifyRegistryError(err error) *Error {
	if err == nil {
		return nil
	}
	var notFound *registry.PackageNotFoundError
	if errors.As(err, &notFound) {
		return newError(CodePackageNotFound, "%v", err)
	}
	return newError(CodeDownstreamError, "%v", err)
}
