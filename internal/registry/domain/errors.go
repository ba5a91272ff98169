package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNodeID reports a node id segment that is not 128 hex characters.
	ErrInvalidNodeID = errors.New("invalid node id")

	// ErrAddressResolve reports a host that could not be resolved to an address.
	ErrAddressResolve = errors.New("could not resolve address")

	// ErrInconsistentLengthAndData reports a wire-format IP field that is
	// neither 4 nor 16 bytes long.
	ErrInconsistentLengthAndData = errors.New("inconsistent length and data")
)

// AddressResolveError reports a failed endpoint resolution with the host that
// failed and, when available, the underlying resolver error.
type AddressResolveError struct {
	Host string
	Err  error
}

func (e *AddressResolveError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", ErrAddressResolve, e.Host)
	}
	return fmt.Sprintf("%v: %s: %v", ErrAddressResolve, e.Host, e.Err)
}

func (e *AddressResolveError) Is(target error) bool {
	return target == ErrAddressResolve
}

func (e *AddressResolveError) Unwrap() error {
	return e.Err
}
