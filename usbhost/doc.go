// Package usbhost connects the dfu engine to real hardware through libusb,
// using github.com/google/gousb.
//
// Usage:
//
//	host := usbhost.Open(usbhost.WithTimeout(5 * time.Second))
//	defer host.Close()
//
//	up := dfu.NewUpdater(host)
//	listings, err := up.List(ctx, dfu.Filter{})
//
// Timeouts and stalls reported by libusb are mapped onto
// dfu.ErrTransferTimeout and dfu.ErrPipe.
//
// gousb does not expose class-specific descriptors, so the DFU functional
// descriptor is read from the raw configuration descriptor with a
// GET_DESCRIPTOR request.
package usbhost
