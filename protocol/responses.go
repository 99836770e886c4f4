package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

// ParseStatus decodes a GETSTATUS response.
//
// Data format (StatusResponseSize bytes):
//
//	[bStatus][bwPollTimeout(3, LE)][bState][iString]
func ParseStatus(data []byte) (*Status, error) {
	if len(data) != StatusResponseSize {
		return nil, fmt.Errorf("invalid GETSTATUS response: got %d bytes, expected %d", len(data), StatusResponseSize)
	}

	pollMs := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16

	return &Status{
		Code:        StatusCode(data[0]),
		PollTimeout: time.Duration(pollMs) * time.Millisecond,
		State:       State(data[4]),
		StringIndex: data[5],
	}, nil
}

// ParseFunctionalDescriptor decodes a 9-byte DFU functional descriptor.
//
// Data format:
//
//	[bLength][bDescriptorType][bmAttributes][wDetachTimeOut(2)][wTransferSize(2)][bcdDFUVersion(2)]
func ParseFunctionalDescriptor(data []byte) (*FunctionalDescriptor, error) {
	if len(data) != FunctionalDescriptorSize {
		return nil, fmt.Errorf("invalid DFU functional descriptor: got %d bytes, expected %d", len(data), FunctionalDescriptorSize)
	}
	if data[0] != FunctionalDescriptorSize {
		return nil, fmt.Errorf("invalid DFU functional descriptor length field: %d", data[0])
	}
	if data[1] != FunctionalDescriptorType {
		return nil, fmt.Errorf("invalid DFU functional descriptor type: 0x%02X, expected 0x%02X", data[1], FunctionalDescriptorType)
	}

	return &FunctionalDescriptor{
		Attributes:    data[2],
		DetachTimeout: binary.LittleEndian.Uint16(data[3:5]),
		TransferSize:  binary.LittleEndian.Uint16(data[5:7]),
		DFUVersion:    binary.LittleEndian.Uint16(data[7:9]),
	}, nil
}

// FindFunctionalDescriptor walks a raw configuration descriptor and returns
// the DFU functional descriptor that follows a DFU-class interface.
// Returns nil without error when the configuration carries none.
func FindFunctionalDescriptor(config []byte) (*FunctionalDescriptor, error) {
	if len(config) < ConfigDescriptorHeaderSize {
		return nil, fmt.Errorf("config descriptor too short: %d bytes", len(config))
	}
	if config[1] != ConfigDescriptorType {
		return nil, fmt.Errorf("not a config descriptor: type 0x%02X", config[1])
	}

	total := int(binary.LittleEndian.Uint16(config[2:4]))
	if total > len(config) {
		total = len(config)
	}

	inDFU := false
	pos := int(config[0])
	for pos+2 <= total {
		length := int(config[pos])
		if length < 2 || pos+length > total {
			return nil, fmt.Errorf("truncated descriptor at offset %d", pos)
		}

		switch config[pos+1] {
		case InterfaceDescriptorType:
			// bInterfaceClass at 5, bInterfaceSubClass at 6
			inDFU = length >= 7 &&
				config[pos+5] == InterfaceClassApplication &&
				config[pos+6] == InterfaceSubClassDFU
		case FunctionalDescriptorType:
			if inDFU && length == FunctionalDescriptorSize {
				return ParseFunctionalDescriptor(config[pos : pos+length])
			}
		}

		pos += length
	}

	return nil, nil
}
