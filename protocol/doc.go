// Package protocol implements the wire-level pieces of the USB DFU 1.1
// class and the ST DfuSe extension.
//
// This package has no USB dependency. It builds request payloads and
// decodes what a target sends back, leaving the control transfers to the
// caller.
//
// # Control Requests
//
// All DFU requests are class requests addressed to the DFU interface:
//
//	bmRequestType  bRequest   wValue       wIndex     data
//	0x21           DNLOAD     transaction  interface  payload (may be empty)
//	0xA1           GETSTATUS  0            interface  6-byte status
//	0x21           CLRSTATUS  0            interface  none
//
// # DfuSe Commands
//
// DfuSe sub-commands are DNLOAD payloads sent with transaction id 0:
//
//	payload := protocol.BuildSetAddressCmd(0x08000000) // 21 00 00 00 08
//	payload := protocol.BuildEraseCmd(0x08004000)      // 41 00 40 00 08
//	payload := protocol.BuildMassEraseCmd()            // 41
//
// # Descriptors
//
// A DfuSe target publishes its memory layout through the interface string
// descriptor:
//
//	segs, err := protocol.ParseMemoryLayout("@Internal Flash  /0x08000000/04*016Kg,01*064Kg,07*128Kg")
//
// The DFU functional descriptor is found by walking the raw configuration
// descriptor:
//
//	desc, err := protocol.FindFunctionalDescriptor(rawConfig)
//	if desc != nil && desc.IsDfuse() {
//	    // addressable target
//	}
package protocol
