package protocol

// DfuseVersion is the bcdDFUVersion reported by targets implementing the
// ST DfuSe extension.
const DfuseVersion = 0x011A

// USB class codes identifying a DFU-mode interface.
const (
	// InterfaceClassApplication is the application-specific interface class (0xFE)
	InterfaceClassApplication = 0xFE

	// InterfaceSubClassDFU is the DFU subclass within the application class
	InterfaceSubClassDFU = 0x01

	// InterfaceProtocolRuntime is reported by devices running their application
	InterfaceProtocolRuntime = 0x01

	// InterfaceProtocolDFUMode is reported by devices already in DFU mode
	InterfaceProtocolDFUMode = 0x02
)

// Control transfer request types (bmRequestType).
const (
	// RequestTypeOut is host-to-device, class, interface (0x21)
	RequestTypeOut = 0x21

	// RequestTypeIn is device-to-host, class, interface (0xA1)
	RequestTypeIn = 0xA1
)

// DFU class request codes (bRequest).
const (
	RequestDetach    = 0x00
	RequestDnload    = 0x01
	RequestUpload    = 0x02
	RequestGetStatus = 0x03
	RequestClrStatus = 0x04
	RequestGetState  = 0x05
	RequestAbort     = 0x06
)

// DfuSe vendor sub-commands, sent as the first byte of a DNLOAD payload
// with transaction id 0.
const (
	// DfuseCmdSetAddress sets the address pointer for the next data download
	DfuseCmdSetAddress = 0x21

	// DfuseCmdErase erases the page at the given address, or the whole
	// device when no address follows
	DfuseCmdErase = 0x41

	// DfuseCmdReadUnprotect removes read protection (mass erases the device)
	DfuseCmdReadUnprotect = 0x92
)

// Transaction ids (wValue) used by the DfuSe extension.
const (
	// DfuseCommandTransaction carries DfuSe sub-commands
	DfuseCommandTransaction = 0

	// DfuseDataTransaction carries every DfuSe data chunk. It is fixed,
	// unlike the incrementing plain DFU transaction id.
	DfuseDataTransaction = 2
)

// Descriptor layout constants.
const (
	// FunctionalDescriptorType is the bDescriptorType of the DFU functional descriptor
	FunctionalDescriptorType = 0x21

	// FunctionalDescriptorSize is the bLength of the DFU functional descriptor
	FunctionalDescriptorSize = 9

	// InterfaceDescriptorType is the standard interface descriptor type
	InterfaceDescriptorType = 0x04

	// ConfigDescriptorType is the standard configuration descriptor type
	ConfigDescriptorType = 0x02

	// ConfigDescriptorHeaderSize is the size of the configuration descriptor header
	ConfigDescriptorHeaderSize = 9

	// StatusResponseSize is the size of a GETSTATUS response
	StatusResponseSize = 6

	// DfuseCommandSize is the size of an addressed DfuSe sub-command
	DfuseCommandSize = 5
)

// Functional descriptor bmAttributes bits.
const (
	AttrCanDownload           = 0x01
	AttrCanUpload             = 0x02
	AttrManifestationTolerant = 0x04
	AttrWillDetach            = 0x08
)
