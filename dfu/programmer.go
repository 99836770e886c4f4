package dfu

import (
	"context"
	"fmt"
	"time"

	"github.com/moffa90/go-dfuse/dfufile"
	"github.com/moffa90/go-dfuse/protocol"
)

// Target describes the DFU interface an image is downloaded to.
type Target struct {
	// Descriptor is the DFU functional descriptor of the interface
	Descriptor protocol.FunctionalDescriptor

	// Layout is the DfuSe memory layout; empty for plain DFU targets
	Layout []protocol.Segment
}

// IsDfuse reports whether the target speaks the DfuSe extension.
func (t Target) IsDfuse() bool {
	return t.Descriptor.IsDfuse()
}

// Programmer sequences erase, address and download commands to write a
// firmware image to a DFU or DfuSe target.
type Programmer struct {
	session *Session
	config  Config
}

// New creates a Programmer for interface iface reachable through t.
// The interface must already be claimed by the caller.
//
// Example:
//
//	prog := dfu.New(dev, 0,
//	    dfu.WithProgressCallback(progressFunc),
//	    dfu.WithTimeout(5*time.Second),
//	)
func New(t Transport, iface uint16, opts ...Option) *Programmer {
	s := NewSession(t, iface, opts...)
	return &Programmer{
		session: s,
		config:  s.config,
	}
}

// Session returns the underlying state machine for low-level commands.
func (p *Programmer) Session() *Session {
	return p.session
}

// transfer is the bookkeeping of one Program call.
type transfer struct {
	bytesSent   int
	totalBytes  int
	chunkSize   int
	baseAddress uint32
	start       time.Time
}

// Program downloads img to target.
//
// Plain DFU targets receive the element data as consecutive DNLOAD
// requests numbered from 0, followed by a zero-length DNLOAD.
//
// DfuSe targets are driven as follows:
//  1. Clear any status left by a previous session
//  2. Erase every page the image overlaps (or the whole device with WithMassErase)
//  3. For each chunk, set the address pointer then DNLOAD with transaction 2
//  4. Set the address pointer back to the first element and issue a zero-length DNLOAD
//
// A pipe error on the final zero-length DNLOAD is expected, as the device
// may reset while manifesting, and is ignored.
func (p *Programmer) Program(ctx context.Context, img *dfufile.Image, target Target) error {
	if img == nil || len(img.Elements) == 0 {
		return fmt.Errorf("image cannot be empty")
	}

	chunkSize := int(target.Descriptor.TransferSize)
	if p.config.TransferSize > 0 {
		chunkSize = p.config.TransferSize
	}
	if chunkSize <= 0 {
		return fmt.Errorf("invalid transfer size %d", chunkSize)
	}

	xfer := &transfer{
		totalBytes:  img.Size(),
		chunkSize:   chunkSize,
		baseAddress: img.Elements[0].Address,
		start:       time.Now(),
	}

	var err error
	if target.IsDfuse() {
		if !img.Addressed {
			return ErrAddressRequired
		}
		err = p.programDfuse(ctx, img, target.Layout, xfer)
	} else {
		if p.config.MassErase {
			return fmt.Errorf("mass erase requires a DfuSe target")
		}
		err = p.programDfu(ctx, img, xfer)
	}
	if err != nil {
		return err
	}

	p.reportProgress(xfer, PhaseComplete, xfer.baseAddress)
	p.logInfo("download complete",
		"bytes", xfer.bytesSent,
		"elements", len(img.Elements),
		"elapsed", time.Since(xfer.start).String(),
	)
	return nil
}

// programDfu streams every element in one transaction sequence.
func (p *Programmer) programDfu(ctx context.Context, img *dfufile.Image, xfer *transfer) error {
	chunks := 0
	for _, elem := range img.Elements {
		chunks += (len(elem.Data) + xfer.chunkSize - 1) / xfer.chunkSize
	}
	// Transaction ids are 16 bits and must not wrap.
	if chunks > 1<<16 {
		return fmt.Errorf("image needs %d chunks of %d bytes, at most %d fit in the transaction counter",
			chunks, xfer.chunkSize, 1<<16)
	}

	transaction := uint16(0)
	for _, elem := range img.Elements {
		for off := 0; off < len(elem.Data); off += xfer.chunkSize {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("cancelled: %w", err)
			}

			chunk := elem.Data[off:min(off+xfer.chunkSize, len(elem.Data))]
			p.logDebug("downloading", "transaction", transaction, "size", len(chunk), "total", xfer.bytesSent)

			if err := p.session.Download(ctx, transaction, chunk); err != nil {
				return fmt.Errorf("chunk %d: %w", transaction, err)
			}

			transaction++
			xfer.bytesSent += len(chunk)
			p.reportProgress(xfer, PhaseDownloading, elem.Address)
		}
	}

	return p.finish(ctx, xfer)
}

// programDfuse erases, then writes each element at its own address.
func (p *Programmer) programDfuse(ctx context.Context, img *dfufile.Image, layout []protocol.Segment, xfer *transfer) error {
	p.reportProgress(xfer, PhaseClearing, xfer.baseAddress)
	if err := p.session.ClearStatus(ctx); err != nil {
		return err
	}

	p.reportProgress(xfer, PhaseErasing, xfer.baseAddress)
	if err := p.erase(ctx, img, layout); err != nil {
		return err
	}

	for _, elem := range img.Elements {
		for off := 0; off < len(elem.Data); off += xfer.chunkSize {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("cancelled: %w", err)
			}

			chunk := elem.Data[off:min(off+xfer.chunkSize, len(elem.Data))]
			addr := elem.Address + uint32(off)

			if err := p.session.SetAddress(ctx, addr); err != nil {
				return err
			}

			p.logDebug("downloading", "address", fmt.Sprintf("0x%08X", addr), "size", len(chunk), "total", xfer.bytesSent)

			if err := p.session.Download(ctx, protocol.DfuseDataTransaction, chunk); err != nil {
				return fmt.Errorf("write 0x%08X: %w", addr, err)
			}

			xfer.bytesSent += len(chunk)
			p.reportProgress(xfer, PhaseDownloading, elem.Address)
		}
	}

	// entry point for the manifestation phase
	if err := p.session.SetAddress(ctx, xfer.baseAddress); err != nil {
		return err
	}

	return p.finish(ctx, xfer)
}

// erase erases each page overlapped by an element exactly once, before
// any data is written.
func (p *Programmer) erase(ctx context.Context, img *dfufile.Image, layout []protocol.Segment) error {
	if p.config.MassErase {
		p.logInfo("mass erasing device")
		return p.session.MassErase(ctx)
	}

	if len(layout) == 0 {
		p.logWarn("no memory layout, skipping page erase")
		return nil
	}

	erased := make(map[uint32]bool)
	for _, elem := range img.Elements {
		for _, page := range protocol.PagesInRange(layout, elem.Address, len(elem.Data)) {
			if erased[page.Addr] {
				continue
			}
			p.logInfo("erasing page",
				"address", fmt.Sprintf("0x%08X", page.Addr),
				"page_size", page.Size,
				"segment", page.Segment,
			)
			if err := p.session.PageErase(ctx, page.Addr); err != nil {
				return err
			}
			erased[page.Addr] = true
		}
	}
	return nil
}

// finish issues the terminating zero-length download.
func (p *Programmer) finish(ctx context.Context, xfer *transfer) error {
	p.reportProgress(xfer, PhaseManifesting, xfer.baseAddress)

	if err := p.session.Download(ctx, 0, nil); err != nil {
		if !IsPipeError(err) {
			return fmt.Errorf("finish download: %w", err)
		}
		p.logWarn("ignoring pipe error when reading final status", "error", err.Error())
	}
	return nil
}

// reportProgress calls the progress callback if configured.
func (p *Programmer) reportProgress(xfer *transfer, phase string, addr uint32) {
	if p.config.ProgressCallback == nil {
		return
	}

	pct := 100.0
	if xfer.totalBytes > 0 {
		pct = float64(xfer.bytesSent) / float64(xfer.totalBytes) * 100
	}

	p.config.ProgressCallback(Progress{
		Phase:       phase,
		Address:     addr,
		BytesSent:   xfer.bytesSent,
		TotalBytes:  xfer.totalBytes,
		Percentage:  pct,
		ElapsedTime: time.Since(xfer.start),
	})
}

// logDebug logs a debug message if a logger is configured.
func (p *Programmer) logDebug(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (p *Programmer) logInfo(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if a logger is configured.
func (p *Programmer) logWarn(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Warn(msg, keysAndValues...)
	}
}
