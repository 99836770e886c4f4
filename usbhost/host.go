package usbhost

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/moffa90/go-dfuse/dfu"
)

// Host enumerates USB devices through libusb.
type Host struct {
	ctx    *gousb.Context
	config config
}

// Open initialises libusb. The Host must be closed when done.
func Open(opts ...Option) *Host {
	cfg := config{timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := gousb.NewContext()
	if cfg.debug > 0 {
		ctx.Debug(cfg.debug)
	}
	return &Host{ctx: ctx, config: cfg}
}

// OpenDevices opens every device whose descriptor satisfies match.
// If any matching device cannot be opened, the ones that were are closed
// and the error is returned.
func (h *Host) OpenDevices(ctx context.Context, match func(dfu.DeviceInfo) bool) ([]dfu.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	devs, err := h.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return match(deviceInfo(desc))
	})
	if err != nil {
		for _, d := range devs {
			d.Close()
		}
		return nil, fmt.Errorf("open devices: %w", mapError(err))
	}

	out := make([]dfu.Device, 0, len(devs))
	for _, d := range devs {
		d.ControlTimeout = h.config.timeout
		if err := d.SetAutoDetach(true); err != nil {
			h.logDebug("auto detach unavailable", "error", err.Error())
		}

		dev := &Device{dev: d, info: deviceInfo(d.Desc)}
		h.logDebug("opened device", "device", dev.info.String())
		out = append(out, dev)
	}
	return out, nil
}

// Close releases libusb. Devices opened through h must be closed first.
func (h *Host) Close() error {
	return h.ctx.Close()
}

func (h *Host) logDebug(msg string, keysAndValues ...interface{}) {
	if h.config.logger != nil {
		h.config.logger.Debug(msg, keysAndValues...)
	}
}
