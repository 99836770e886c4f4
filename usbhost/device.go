package usbhost

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/moffa90/go-dfuse/dfu"
	"github.com/moffa90/go-dfuse/protocol"
)

// Device is an opened USB device. At most one interface is claimed at a time.
type Device struct {
	dev  *gousb.Device
	info dfu.DeviceInfo

	cfg  *gousb.Config
	intf *gousb.Interface
}

var (
	_ dfu.Device        = (*Device)(nil)
	_ dfu.TimeoutSetter = (*Device)(nil)
)

// Control issues a control transfer on endpoint 0.
func (d *Device) Control(requestType, request uint8, value, index uint16, data []byte) (int, error) {
	n, err := d.dev.Control(requestType, request, value, index, data)
	return n, mapError(err)
}

// SetControlTimeout sets the timeout of subsequent control transfers.
func (d *Device) SetControlTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("invalid timeout %s", timeout)
	}
	d.dev.ControlTimeout = timeout
	return nil
}

// Info returns the enumeration data of the device.
func (d *Device) Info() dfu.DeviceInfo {
	return d.info
}

// FunctionalDescriptor reads the configuration descriptors from the device
// and returns the first DFU functional descriptor found.
func (d *Device) FunctionalDescriptor() (*protocol.FunctionalDescriptor, error) {
	return findFunctionalDescriptor(d.dev, len(d.dev.Desc.Configs))
}

// InterfaceName returns the string descriptor of interface setting iface/alt
// in the active configuration.
func (d *Device) InterfaceName(iface, alt int) (string, error) {
	cfgNum, err := d.activeConfig()
	if err != nil {
		return "", err
	}
	name, err := d.dev.InterfaceDescription(cfgNum, iface, alt)
	if err != nil {
		return "", mapError(err)
	}
	return name, nil
}

// Claim claims interface iface, alternate setting 0, of the active configuration.
func (d *Device) Claim(iface int) error {
	if d.intf != nil {
		return fmt.Errorf("interface %d already claimed", d.intf.Setting.Number)
	}

	cfgNum, err := d.activeConfig()
	if err != nil {
		return err
	}
	cfg, err := d.dev.Config(cfgNum)
	if err != nil {
		return mapError(err)
	}
	intf, err := cfg.Interface(iface, 0)
	if err != nil {
		cfg.Close()
		return mapError(err)
	}

	d.cfg, d.intf = cfg, intf
	return nil
}

// Release releases the claimed interface. It is a no-op when nothing is claimed.
func (d *Device) Release() error {
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	if d.cfg != nil {
		err := d.cfg.Close()
		d.cfg = nil
		return mapError(err)
	}
	return nil
}

// Close releases any claimed interface and closes the device.
func (d *Device) Close() error {
	return errors.Join(d.Release(), d.dev.Close())
}

// activeConfig returns the active configuration number, falling back to
// the lowest one the device reports.
func (d *Device) activeConfig() (int, error) {
	if n, err := d.dev.ActiveConfigNum(); err == nil && n > 0 {
		return n, nil
	}
	first := -1
	for n := range d.dev.Desc.Configs {
		if first < 0 || n < first {
			first = n
		}
	}
	if first < 0 {
		return 0, fmt.Errorf("device %s has no configuration", d.info)
	}
	return first, nil
}
