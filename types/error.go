package types

import (
	"github.com/juju/errors"
)

var (
	_ error = &VendorError{}
	_ error = &CycleError{}
)

// NewVendorError wraps a failed vendor call, keeping the vendor name and the
// upstream status code/body for the caller.
func NewVendorError(vendor string, statusCode int, otherErr error) error {
	return &VendorError{baseError: newBaseErr(otherErr), Vendor: vendor, StatusCode: statusCode}
}

func NewVendorErrorf(vendor string, statusCode int, format string, args ...interface{}) error {
	return NewVendorError(vendor, statusCode, errors.Errorf(format, args...))
}

// NewCycleErrorf marks a graph that is not a DAG; a run hitting this error
// aborts before any node executes.
func NewCycleErrorf(format string, args ...interface{}) error {
	return &CycleError{baseError: newBaseErr(errors.Errorf(format, args...))}
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{unwrapErr(otherErr)}
}

func unwrapErr(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(wrappedErr); ok {
		return unwrapErr(ue.UnwrapLocal())
	}
	return err
}

type wrappedErr interface {
	UnwrapLocal() error
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	return e.BaseErr.Error()
}

func (e *baseError) UnwrapLocal() error {
	return e.BaseErr
}

type VendorError struct {
	*baseError
	Vendor     string
	StatusCode int
	Body       string
}

type CycleError struct {
	*baseError
}

// IsVendorError reports whether err (possibly juju-traced) is a VendorError.
func IsVendorError(err error) bool {
	for err != nil {
		if _, ok := err.(*VendorError); ok {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

func IsCycleError(err error) bool {
	for err != nil {
		if _, ok := err.(*CycleError); ok {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
