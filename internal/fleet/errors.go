package fleet

import (
	"errors"
	"fmt"
)

// The error taxonomy maps one-to-one onto CLI exit codes. Every failure is
// attached to the node or action it concerns; nothing is swallowed on the
// way up.

// InvalidSpecError reports a bad desired-state input. Nothing is applied
// when the spec is invalid.
type InvalidSpecError struct {
	Field  string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid spec: %s", e.Reason)
	}
	return fmt.Sprintf("invalid spec: %s: %s", e.Field, e.Reason)
}

// ProvisionError reports a hypervisor-level failure during create or
// destroy. Resource-allocation failures are not retried automatically; they
// usually indicate exhausted pool capacity or misconfiguration.
type ProvisionError struct {
	Node NodeKey
	Op   string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s: %s: %v", e.Node, e.Op, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// TimeoutError reports a node that never became reachable or ready within
// its deadline. Fleet-level processing continues for other nodes.
type TimeoutError struct {
	Node  NodeKey
	Stage string
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s (%s): %v", e.Node, e.Stage, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// BootstrapError reports a control-plane initialization or addon deployment
// failure. Fatal to the bootstrap run; the operator re-invokes after
// remediation.
type BootstrapError struct {
	Stage string
	Err   error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap %s: %v", e.Stage, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// JoinError reports a single worker failing to join after its retry budget.
// Non-fatal to the overall run.
type JoinError struct {
	Node     NodeKey
	Attempts int
	Err      error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join %s failed after %d attempts: %v", e.Node, e.Attempts, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }

// IsInvalidSpec reports whether err is an InvalidSpecError.
func IsInvalidSpec(err error) bool {
	var e *InvalidSpecError
	return errors.As(err, &e)
}

// IsProvision reports whether err is a ProvisionError.
func IsProvision(err error) bool {
	var e *ProvisionError
	return errors.As(err, &e)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}

// IsBootstrap reports whether err is a BootstrapError.
func IsBootstrap(err error) bool {
	var e *BootstrapError
	return errors.As(err, &e)
}
