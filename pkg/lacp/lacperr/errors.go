// Package lacperr defines the sentinel error kinds surfaced by the core.
package lacperr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per §7 error kind.
var (
	ErrBadPDU    = errors.New("malformed inbound PDU")
	ErrDupSport  = errors.New("sport handle already in use")
	ErrDupLport  = errors.New("lport handle already in use")
	ErrBusy      = errors.New("sport has attached members or learned partner state")
	ErrNotFound  = errors.New("handle not found")
	ErrNoMatch   = errors.New("no aggregator matched port tuple")
)

// ConfigError wraps a configurator-facing failure with the operation and
// handle that triggered it.
type ConfigError struct {
	Op     string
	Handle fmt.Stringer
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError builds a ConfigError.
func NewConfigError(op string, handle fmt.Stringer, err error) *ConfigError {
	return &ConfigError{Op: op, Handle: handle, Err: err}
}
