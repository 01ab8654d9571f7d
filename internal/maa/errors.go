package maa

// errors.go declares the sentinel errors for the kinds of failures the
// controller can encounter. Per spec.md §7, kinds 1 and 2 are fatal
// programming-error assertions; back-pressure and operand-not-ready are not
// errors at all -- they are ordinary control flow and never surface here.

import (
	"errors"
	"fmt"
)

var (
	// ErrMAA is the root of the controller's error tree.
	ErrMAA = errors.New("maa")

	// ErrUnsupportedTransaction is returned for a host-side transaction with a
	// size mismatch, a write to a read-only window, a read from a write-only
	// window, or an address outside every configured window.
	ErrUnsupportedTransaction = fmt.Errorf("%w: unsupported transaction", ErrMAA)

	// ErrProtocolViolation marks a broken invariant the controller depends
	// on for correctness: two units claiming one response, or a completion
	// reported for an instruction that is no longer in flight.
	ErrProtocolViolation = fmt.Errorf("%w: protocol violation", ErrMAA)
)

// TransactionError wraps ErrUnsupportedTransaction with the offending address.
type TransactionError struct {
	Addr Addr
	Why  string
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrUnsupportedTransaction, e.Addr, e.Why)
}

func (e *TransactionError) Unwrap() error { return ErrUnsupportedTransaction }

// ProtocolError wraps ErrProtocolViolation with a description of the broken
// invariant.
type ProtocolError struct {
	Why string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", ErrProtocolViolation, e.Why)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocolViolation }
