package protocol

import (
	"errors"
	"fmt"
)

// GETSTATUS bStatus codes per DFU 1.1 section 6.1.2.
const (
	StatusOK             StatusCode = 0x00
	StatusErrTarget      StatusCode = 0x01
	StatusErrFile        StatusCode = 0x02
	StatusErrWrite       StatusCode = 0x03
	StatusErrErase       StatusCode = 0x04
	StatusErrCheckErased StatusCode = 0x05
	StatusErrProg        StatusCode = 0x06
	StatusErrVerify      StatusCode = 0x07
	StatusErrAddress     StatusCode = 0x08
	StatusErrNotDone     StatusCode = 0x09
	StatusErrFirmware    StatusCode = 0x0A
	StatusErrVendor      StatusCode = 0x0B
	StatusErrUSBReset    StatusCode = 0x0C
	StatusErrPOR         StatusCode = 0x0D
	StatusErrUnknown     StatusCode = 0x0E
	StatusErrStalledPkt  StatusCode = 0x0F
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "ok"
	case StatusErrTarget:
		return "file is not for this target"
	case StatusErrFile:
		return "file fails a vendor-specific verification test"
	case StatusErrWrite:
		return "unable to write memory"
	case StatusErrErase:
		return "memory erase function failed"
	case StatusErrCheckErased:
		return "memory erase check failed"
	case StatusErrProg:
		return "program memory function failed"
	case StatusErrVerify:
		return "programmed memory failed verification"
	case StatusErrAddress:
		return "memory address is out of range"
	case StatusErrNotDone:
		return "premature DNLOAD with wLength = 0"
	case StatusErrFirmware:
		return "firmware is corrupt"
	case StatusErrVendor:
		return "vendor-specific error"
	case StatusErrUSBReset:
		return "unexpected USB reset signaling"
	case StatusErrPOR:
		return "unexpected power on reset"
	case StatusErrUnknown:
		return "unknown error"
	case StatusErrStalledPkt:
		return "stalled an unexpected request"
	default:
		return fmt.Sprintf("unknown status code 0x%02X", uint8(c))
	}
}

// MalformedDescriptorError indicates a DfuSe memory layout string that
// cannot be decoded.
type MalformedDescriptorError struct {
	// Descriptor is the full layout string
	Descriptor string

	// Token is the offending part of the string, if any
	Token string

	// Reason describes what was wrong
	Reason string
}

func (e *MalformedDescriptorError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("malformed memory layout %q: token %q: %s", e.Descriptor, e.Token, e.Reason)
	}
	return fmt.Sprintf("malformed memory layout %q: %s", e.Descriptor, e.Reason)
}

// IsMalformedDescriptor returns true if err is or wraps a MalformedDescriptorError.
func IsMalformedDescriptor(err error) bool {
	var malformed *MalformedDescriptorError
	return errors.As(err, &malformed)
}
