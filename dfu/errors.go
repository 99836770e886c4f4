package dfu

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-dfuse/protocol"
)

// Selection and setup errors.
var (
	// ErrDeviceNotFound is returned when no DFU-mode device matches the filter
	ErrDeviceNotFound = errors.New("no devices found in DFU mode")

	// ErrAmbiguousDevice is returned when more than one device matches the filter
	ErrAmbiguousDevice = errors.New("more than one device in DFU mode")

	// ErrDescriptorMissing is returned when the device has no DFU functional descriptor
	ErrDescriptorMissing = errors.New("no DFU functional descriptor")

	// ErrAddressRequired is returned when a flat image without an address
	// is downloaded to a DfuSe target
	ErrAddressRequired = errors.New("address required for DfuSe target")
)

// Transport error classes. Transports return these (possibly wrapped) so
// the engine can tell them apart.
var (
	// ErrTransferTimeout indicates a control transfer, or a state poll, did not complete in time
	ErrTransferTimeout = errors.New("transfer timeout")

	// ErrPipe indicates the device stalled the control pipe
	ErrPipe = errors.New("pipe error")
)

// DeviceError indicates the device entered the dfuERROR state.
type DeviceError struct {
	// Op is the operation that observed the error
	Op string

	// State is the reported state (normally protocol.StateError)
	State protocol.State

	// Status is the reported bStatus
	Status protocol.StatusCode
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: device reported %s: %s (0x%02X)", e.Op, e.State, e.Status, uint8(e.Status))
}

// TransportError wraps a failed control transfer.
type TransportError struct {
	// Op is the DFU request that failed
	Op string

	// Err is the transport error
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsPipeError reports whether err is a stalled control pipe.
func IsPipeError(err error) bool {
	return errors.Is(err, ErrPipe)
}

// IsTimeout reports whether err is a transfer or poll timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTransferTimeout)
}

// IsDeviceError reports whether err carries a DeviceError.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
