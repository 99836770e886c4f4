package dfu

import (
	"context"
	"errors"
	"fmt"

	"github.com/moffa90/go-dfuse/protocol"
)

// InterfaceInfo describes one alternate setting of a USB interface.
type InterfaceInfo struct {
	Number    int
	Alternate int
	Class     uint8
	SubClass  uint8
	Protocol  uint8
}

// IsDFU reports whether the setting belongs to the DFU class.
func (i InterfaceInfo) IsDFU() bool {
	return i.Class == protocol.InterfaceClassApplication && i.SubClass == protocol.InterfaceSubClassDFU
}

// DeviceInfo is the enumeration-time view of a USB device.
type DeviceInfo struct {
	Bus        int
	Address    int
	VendorID   uint16
	ProductID  uint16
	Interfaces []InterfaceInfo
}

// String returns the device in lsusb notation.
func (d DeviceInfo) String() string {
	return fmt.Sprintf("Bus %03d Device %03d: ID %04x:%04x", d.Bus, d.Address, d.VendorID, d.ProductID)
}

// Filter narrows device selection. Zero fields match any device.
type Filter struct {
	VendorID  uint16
	ProductID uint16
}

// IsDFUInterface reports whether an interface of a device with the given
// ids is a DFU interface accepted by f.
func IsDFUInterface(f Filter, vendorID, productID uint16, class, subClass uint8) bool {
	if f.VendorID != 0 && f.VendorID != vendorID {
		return false
	}
	if f.ProductID != 0 && f.ProductID != productID {
		return false
	}
	return class == protocol.InterfaceClassApplication && subClass == protocol.InterfaceSubClassDFU
}

// Match reports whether the device has at least one DFU interface
// accepted by f.
func (f Filter) Match(info DeviceInfo) bool {
	for _, intf := range info.Interfaces {
		if IsDFUInterface(f, info.VendorID, info.ProductID, intf.Class, intf.SubClass) {
			return true
		}
	}
	return false
}

// Device is an opened USB device able to carry DFU requests.
type Device interface {
	Transport

	// Info returns the enumeration data of the device
	Info() DeviceInfo

	// FunctionalDescriptor returns the first DFU functional descriptor of
	// the active configuration, or nil if there is none
	FunctionalDescriptor() (*protocol.FunctionalDescriptor, error)

	// InterfaceName returns the string descriptor of an interface setting
	InterfaceName(iface, alt int) (string, error)

	// Claim claims interface iface for exclusive use
	Claim(iface int) error

	// Release releases the claimed interface, if any
	Release() error

	// Close closes the device
	Close() error
}

// Host enumerates USB devices.
type Host interface {
	// OpenDevices opens every device for which match returns true
	OpenDevices(ctx context.Context, match func(DeviceInfo) bool) ([]Device, error)
}

// Select opens the single DFU-mode device accepted by f.
// It returns ErrDeviceNotFound when there is none and ErrAmbiguousDevice
// when there are several, in which case every opened device is closed.
// No control transfer is issued.
func Select(ctx context.Context, host Host, f Filter) (Device, error) {
	devices, err := host.OpenDevices(ctx, f.Match)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	switch len(devices) {
	case 0:
		return nil, ErrDeviceNotFound
	case 1:
		return devices[0], nil
	}

	var errs []error
	for _, dev := range devices {
		if err := dev.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	err = fmt.Errorf("%w (%d devices), specify vid:pid to filter", ErrAmbiguousDevice, len(devices))
	if len(errs) > 0 {
		return nil, errors.Join(append([]error{err}, errs...)...)
	}
	return nil, err
}

// ReadMemoryLayout reads and parses the DfuSe memory layout advertised as
// the name of interface setting iface/alt. A device without such a string
// is a plain DFU target and yields an empty layout.
func ReadMemoryLayout(dev Device, iface, alt int) ([]protocol.Segment, error) {
	name, err := dev.InterfaceName(iface, alt)
	if err != nil || name == "" {
		return nil, nil
	}
	return protocol.ParseMemoryLayout(name)
}
