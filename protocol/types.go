package protocol

import (
	"fmt"
	"time"
)

// State is the DFU device state reported in byte 4 of a GETSTATUS response.
type State uint8

// DFU device states.
const (
	StateAppIdle           State = 0x00
	StateAppDetach         State = 0x01
	StateIdle              State = 0x02
	StateDownloadSync      State = 0x03
	StateDownloadBusy      State = 0x04
	StateDownloadIdle      State = 0x05
	StateManifestSync      State = 0x06
	StateManifest          State = 0x07
	StateManifestWaitReset State = 0x08
	StateUploadIdle        State = 0x09
	StateError             State = 0x0A
)

var stateNames = [...]string{
	StateAppIdle:           "appIDLE",
	StateAppDetach:         "appDETACH",
	StateIdle:              "dfuIDLE",
	StateDownloadSync:      "dfuDNLOAD-SYNC",
	StateDownloadBusy:      "dfuDNBUSY",
	StateDownloadIdle:      "dfuDNLOAD-IDLE",
	StateManifestSync:      "dfuMANIFEST-SYNC",
	StateManifest:          "dfuMANIFEST",
	StateManifestWaitReset: "dfuMANIFEST-WAIT-RESET",
	StateUploadIdle:        "dfuUPLOAD-IDLE",
	StateError:             "dfuERROR",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(0x%02X)", uint8(s))
}

// Ready reports whether a command issued in this state has been processed
// and the device accepts the next one.
func (s State) Ready() bool {
	return s == StateIdle || s == StateDownloadIdle
}

// StatusCode is the bStatus field of a GETSTATUS response.
type StatusCode uint8

// Status is a decoded GETSTATUS response.
type Status struct {
	// Code is the result of the most recent request
	Code StatusCode

	// PollTimeout is the minimum time the host should wait before the next GETSTATUS
	PollTimeout time.Duration

	// State is the state the device enters after this response
	State State

	// StringIndex is the index of a status description string descriptor
	StringIndex uint8
}

// FunctionalDescriptor is the DFU class functional descriptor attached to a
// DFU-mode interface.
type FunctionalDescriptor struct {
	// Attributes is bmAttributes (AttrCanDownload, AttrWillDetach, ...)
	Attributes uint8

	// DetachTimeout is wDetachTimeOut in milliseconds
	DetachTimeout uint16

	// TransferSize is wTransferSize, the maximum DNLOAD payload
	TransferSize uint16

	// DFUVersion is bcdDFUVersion
	DFUVersion uint16
}

// IsDfuse reports whether the descriptor announces the DfuSe extension.
func (d *FunctionalDescriptor) IsDfuse() bool {
	return d.DFUVersion == DfuseVersion
}

// Segment is one contiguous region of device memory with a uniform page size.
type Segment struct {
	// StartAddr is the address of the first page
	StartAddr uint32

	// PageCount is the number of pages in the segment
	PageCount uint32

	// PageSize is the size of each page in bytes
	PageSize uint32

	// Code is the trailing type character of the segment token, kept as reported
	Code byte
}

// Size returns the total size of the segment in bytes.
func (s Segment) Size() uint32 {
	return s.PageCount * s.PageSize
}

// EndAddr returns the last address contained in the segment.
func (s Segment) EndAddr() uint32 {
	return s.StartAddr + s.Size() - 1
}

// PageAddr returns the start address of page i.
func (s Segment) PageAddr(i uint32) uint32 {
	return s.StartAddr + i*s.PageSize
}
