package usbhost

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/gousb"

	"github.com/moffa90/go-dfuse/dfu"
	"github.com/moffa90/go-dfuse/protocol"
)

// requestGetDescriptor is the standard GET_DESCRIPTOR request.
const requestGetDescriptor = 0x06

// controller issues control transfers.
type controller interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
}

// readConfigDescriptor fetches the full configuration descriptor at index,
// including the class-specific descriptors gousb does not expose.
func readConfigDescriptor(c controller, index int) ([]byte, error) {
	// Standard requests have type bits 0.
	rType := uint8(gousb.ControlIn | gousb.ControlDevice)
	value := uint16(protocol.ConfigDescriptorType)<<8 | uint16(index)

	header := make([]byte, protocol.ConfigDescriptorHeaderSize)
	n, err := c.Control(rType, requestGetDescriptor, value, 0, header)
	if err != nil {
		return nil, mapError(err)
	}
	if n < len(header) {
		return nil, fmt.Errorf("config descriptor %d: short header (%d bytes)", index, n)
	}

	total := int(binary.LittleEndian.Uint16(header[2:4]))
	if total < len(header) {
		return nil, fmt.Errorf("config descriptor %d: invalid total length %d", index, total)
	}

	buf := make([]byte, total)
	n, err = c.Control(rType, requestGetDescriptor, value, 0, buf)
	if err != nil {
		return nil, mapError(err)
	}
	return buf[:n], nil
}

// findFunctionalDescriptor returns the first DFU functional descriptor
// across the device's configurations, or nil if there is none.
func findFunctionalDescriptor(c controller, configs int) (*protocol.FunctionalDescriptor, error) {
	for i := 0; i < configs; i++ {
		raw, err := readConfigDescriptor(c, i)
		if err != nil {
			return nil, err
		}
		desc, err := protocol.FindFunctionalDescriptor(raw)
		if err != nil {
			return nil, fmt.Errorf("config descriptor %d: %w", i, err)
		}
		if desc != nil {
			return desc, nil
		}
	}
	return nil, nil
}

// deviceInfo converts a gousb descriptor to the engine's view.
// Configurations and interfaces are listed in ascending number order.
func deviceInfo(desc *gousb.DeviceDesc) dfu.DeviceInfo {
	info := dfu.DeviceInfo{
		Bus:       desc.Bus,
		Address:   desc.Address,
		VendorID:  uint16(desc.Vendor),
		ProductID: uint16(desc.Product),
	}

	numbers := make([]int, 0, len(desc.Configs))
	for n := range desc.Configs {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for _, n := range numbers {
		for _, intf := range desc.Configs[n].Interfaces {
			for _, alt := range intf.AltSettings {
				info.Interfaces = append(info.Interfaces, dfu.InterfaceInfo{
					Number:    alt.Number,
					Alternate: alt.Alternate,
					Class:     uint8(alt.Class),
					SubClass:  uint8(alt.SubClass),
					Protocol:  uint8(alt.Protocol),
				})
			}
		}
	}
	return info
}
