package dfu

import (
	"context"
	"fmt"

	"github.com/moffa90/go-dfuse/dfufile"
	"github.com/moffa90/go-dfuse/protocol"
)

// InterfaceListing describes one DFU interface setting of a listed device.
type InterfaceListing struct {
	InterfaceInfo

	// Name is the interface string descriptor, empty if unavailable
	Name string

	// Layout is the parsed DfuSe memory layout, empty for plain DFU
	Layout []protocol.Segment
}

// Listing describes one device in DFU mode.
type Listing struct {
	Device     DeviceInfo
	Interfaces []InterfaceListing
}

// DownloadRequest selects a firmware file and the device to write it to.
type DownloadRequest struct {
	// Path is the firmware file. Files ending in .dfu are decoded as
	// containers, anything else as a flat binary.
	Path string

	// Address is the load address of a flat binary. Required for DfuSe
	// targets, ignored for containers.
	Address *uint32

	// Filter narrows device selection
	Filter Filter

	// Interface is the DFU interface number to claim
	Interface int
}

// Updater ties device selection, interface claim and the Programmer
// together. It is the entry point used by the command line tool.
type Updater struct {
	host   Host
	opts   []Option
	config Config
}

// NewUpdater creates an Updater enumerating devices through host.
// The options are passed on to every Programmer it creates.
func NewUpdater(host Host, opts ...Option) *Updater {
	if host == nil {
		panic("host cannot be nil")
	}
	return &Updater{
		host:   host,
		opts:   opts,
		config: newConfig(opts),
	}
}

// List returns every device in DFU mode accepted by f along with its DFU
// interfaces. Memory layouts that cannot be read or parsed are reported
// as empty.
func (u *Updater) List(ctx context.Context, f Filter) ([]Listing, error) {
	devices, err := u.host.OpenDevices(ctx, f.Match)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	listings := make([]Listing, 0, len(devices))
	for _, dev := range devices {
		info := dev.Info()
		listing := Listing{Device: info}

		for _, intf := range info.Interfaces {
			if !intf.IsDFU() {
				continue
			}
			entry := InterfaceListing{InterfaceInfo: intf}
			if name, err := dev.InterfaceName(intf.Number, intf.Alternate); err == nil {
				entry.Name = name
			}
			layout, err := ReadMemoryLayout(dev, intf.Number, intf.Alternate)
			if err != nil {
				u.logWarn("unreadable memory layout",
					"device", info.String(),
					"interface", intf.Number,
					"alt", intf.Alternate,
					"error", err.Error(),
				)
			}
			entry.Layout = layout
			listing.Interfaces = append(listing.Interfaces, entry)
		}

		if err := dev.Close(); err != nil {
			u.logWarn("close device", "device", info.String(), "error", err.Error())
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// Download decodes the firmware file and writes it to the single
// matching device. The file is fully decoded before any device is
// opened, and the claimed interface is released on every path.
func (u *Updater) Download(ctx context.Context, req DownloadRequest) error {
	u.logInfo("downloading firmware file", "path", req.Path)

	img, err := dfufile.Parse(req.Path, dfufile.SourceForPath(req.Path, req.Address))
	if err != nil {
		return err
	}

	return u.withTarget(ctx, req.Filter, req.Interface, func(prog *Programmer, target Target) error {
		return prog.Program(ctx, img, target)
	})
}

// MassErase erases the whole DfuSe device selected by f.
func (u *Updater) MassErase(ctx context.Context, f Filter, iface int) error {
	return u.withTarget(ctx, f, iface, func(prog *Programmer, target Target) error {
		if !target.IsDfuse() {
			return fmt.Errorf("mass erase requires a DfuSe target")
		}
		if err := prog.Session().ClearStatus(ctx); err != nil {
			return err
		}
		u.logInfo("mass erasing device")
		return prog.Session().MassErase(ctx)
	})
}

// withTarget selects and claims the device, reads its DFU descriptor and
// memory layout, then runs fn. Release and close always run.
func (u *Updater) withTarget(ctx context.Context, f Filter, iface int, fn func(*Programmer, Target) error) (err error) {
	dev, err := Select(ctx, u.host, f)
	if err != nil {
		return err
	}
	info := dev.Info()
	defer func() {
		if cerr := dev.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close device: %w", cerr)
		}
	}()

	if err := dev.Claim(iface); err != nil {
		return fmt.Errorf("claim interface %d: %w", iface, err)
	}
	u.logDebug("claimed interface", "device", info.String(), "interface", iface)
	defer func() {
		if rerr := dev.Release(); rerr != nil {
			u.logWarn("release interface", "interface", iface, "error", rerr.Error())
			if err == nil {
				err = fmt.Errorf("release interface %d: %w", iface, rerr)
			}
			return
		}
		u.logDebug("released interface", "interface", iface)
	}()

	desc, err := dev.FunctionalDescriptor()
	if err != nil {
		return fmt.Errorf("read DFU descriptor: %w", err)
	}
	if desc == nil {
		return ErrDescriptorMissing
	}
	u.logDebug("DFU descriptor",
		"attributes", fmt.Sprintf("0x%02X", desc.Attributes),
		"detach_timeout", desc.DetachTimeout,
		"transfer_size", desc.TransferSize,
		"version", fmt.Sprintf("0x%04X", desc.DFUVersion),
	)

	target := Target{Descriptor: *desc}
	if target.IsDfuse() {
		layout, err := ReadMemoryLayout(dev, iface, 0)
		if err != nil {
			return err
		}
		target.Layout = layout
	}

	return fn(New(dev, uint16(iface), u.opts...), target)
}

// logDebug logs a debug message if a logger is configured.
func (u *Updater) logDebug(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (u *Updater) logInfo(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if a logger is configured.
func (u *Updater) logWarn(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Warn(msg, keysAndValues...)
	}
}
