package protocol

import "encoding/binary"

// BuildSetAddressCmd constructs the DfuSe Set Address Pointer payload.
// The next data download is written starting at addr.
//
// Payload structure:
//
//	[0x21][ADDR_0][ADDR_1][ADDR_2][ADDR_3]
func BuildSetAddressCmd(addr uint32) []byte {
	return buildAddressedCmd(DfuseCmdSetAddress, addr)
}

// BuildEraseCmd constructs the DfuSe Erase payload for the page containing addr.
//
// Payload structure:
//
//	[0x41][ADDR_0][ADDR_1][ADDR_2][ADDR_3]
func BuildEraseCmd(addr uint32) []byte {
	return buildAddressedCmd(DfuseCmdErase, addr)
}

// BuildMassEraseCmd constructs the DfuSe Erase payload without an address,
// which erases the whole device.
func BuildMassEraseCmd() []byte {
	return []byte{DfuseCmdErase}
}

func buildAddressedCmd(cmd byte, addr uint32) []byte {
	payload := make([]byte, DfuseCommandSize)
	payload[0] = cmd
	binary.LittleEndian.PutUint32(payload[1:], addr)
	return payload
}
