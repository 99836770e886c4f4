// Package dfu drives USB DFU 1.1 and ST DfuSe targets.
//
// # Overview
//
// The package layers three pieces on top of a control-transfer transport:
//   - Session: the DFU state machine (GETSTATUS, CLRSTATUS, DNLOAD) and the
//     DfuSe address pointer and erase commands
//   - Programmer: sequences erase, address and chunked downloads for an image
//   - Updater: selects a device, claims its interface and runs the Programmer
//
// # Basic Usage
//
// Download a firmware file to the only DFU device attached:
//
//	host := usbhost.Open()
//	defer host.Close()
//
//	addr := uint32(0x08000000)
//	up := dfu.NewUpdater(host)
//	err := up.Download(context.Background(), dfu.DownloadRequest{
//	    Path:    "firmware.bin",
//	    Address: &addr,
//	})
//
// A flat binary needs an address when the target speaks DfuSe. A .dfu
// container carries its own element addresses.
//
// # Driving a Claimed Interface
//
// When the caller already owns a transport, the Programmer can be used
// directly:
//
//	img, err := dfufile.Parse("firmware.dfu", dfufile.Container{})
//	prog := dfu.New(dev, 0, dfu.WithTransferSize(2048))
//	err = prog.Program(ctx, img, dfu.Target{Descriptor: desc, Layout: layout})
//
// # Progress Tracking
//
//	up := dfu.NewUpdater(host,
//	    dfu.WithProgressCallback(func(p dfu.Progress) {
//	        fmt.Printf("[%s] 0x%08X %.1f%%\n", p.Phase, p.Address, p.Percentage)
//	    }),
//	)
//
// # Status Polling
//
// Every state-changing request is followed by GETSTATUS polls until the
// device is idle again. The number of polls per request is bounded by
// WithPollLimit (10000 by default); a limit of 0 polls forever. Exceeding
// the limit returns an error matching ErrTransferTimeout.
//
// # Error Handling
//
// Selection and setup failures are sentinels: ErrDeviceNotFound,
// ErrAmbiguousDevice, ErrDescriptorMissing, ErrAddressRequired.
// A device entering dfuERROR yields a *DeviceError. Failed transfers are
// wrapped in a *TransportError whose cause matches ErrTransferTimeout or
// ErrPipe when the transport could classify it.
//
// A stalled pipe on the final zero-length DNLOAD is not an error: the
// device is allowed to reset while manifesting.
package dfu
