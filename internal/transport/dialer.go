package transport

import "errors"

// ErrNoDriver is returned when no transport driver was linked into the
// binary.
var ErrNoDriver = errors.New("transport: no driver registered")

var defaultDialer Dialer

// RegisterDialer installs the process-wide transport driver. Driver
// packages call this from init; the last registration wins.
func RegisterDialer(d Dialer) {
	defaultDialer = d
}

// DefaultDialer returns the registered driver.
func DefaultDialer() (Dialer, error) {
	if defaultDialer == nil {
		return nil, ErrNoDriver
	}
	return defaultDialer, nil
}
