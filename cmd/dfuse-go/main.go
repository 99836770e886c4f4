// Command dfuse-go lists DFU devices and downloads firmware to them.
//
// Usage:
//
//	dfuse-go [flags]
//
// Flags:
//
//	-l                List available DFU devices
//	-D file           Download firmware from file to device
//	-a address        Device address in hex for DfuSe devices
//	-d vid:pid        DFU device in hex
//	-i interface      USB interface to use (default 0)
//	-m                Mass erase the device (DfuSe only)
//	-config file      Configuration file path (YAML)
//	-timeout d        Timeout of each control transfer (default 5s)
//	-poll-limit n     Maximum status polls per request (default 10000)
//	-v                Print verbose debug statements
//	-V                Print the version number
//
// Examples:
//
//	# List STM32 devices in system memory boot mode
//	dfuse-go -l -d 0483:df11
//
//	# Download a flat binary to a DfuSe device
//	dfuse-go -D firmware.bin -a 0x08000000
//
//	# Download a DfuSe container, which carries its own addresses
//	dfuse-go -D firmware.dfu -config board.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/moffa90/go-dfuse/dfu"
	"github.com/moffa90/go-dfuse/protocol"
	"github.com/moffa90/go-dfuse/usbhost"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if cfg.Version {
		fmt.Fprintln(stdout, version)
		return 0
	}
	if !cfg.List && cfg.Download == "" && !cfg.MassErase {
		fmt.Fprintln(stderr, "nothing to do, use -l, -D or -m (see -h)")
		return 2
	}

	logger := newSlogLogger(stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	host := usbhost.Open(
		usbhost.WithTimeout(cfg.Timeout),
		usbhost.WithLogger(logger),
	)
	defer host.Close()

	opts := []dfu.Option{
		dfu.WithLogger(logger),
		dfu.WithTimeout(cfg.Timeout),
		dfu.WithPollLimit(cfg.PollLimit),
	}
	if cfg.LogLevel > slog.LevelDebug {
		opts = append(opts, dfu.WithProgressCallback(newProgressPrinter(stderr)))
	}
	up := dfu.NewUpdater(host, opts...)

	if err := execute(ctx, up, cfg, stdout, logger); err != nil {
		logger.Error("operation failed", "error", err.Error())
		return 1
	}
	return 0
}

// execute runs the operation selected by cfg.
func execute(ctx context.Context, up *dfu.Updater, cfg *Config, stdout io.Writer, logger *slogLogger) error {
	if cfg.List {
		listings, err := up.List(ctx, cfg.Filter)
		if err != nil {
			return err
		}
		printListings(stdout, listings)
		return nil
	}

	if cfg.MassErase {
		if err := up.MassErase(ctx, cfg.Filter, cfg.Interface); err != nil {
			return err
		}
		logger.Info("mass erase complete")
	}

	if cfg.Download != "" {
		return up.Download(ctx, dfu.DownloadRequest{
			Path:      cfg.Download,
			Address:   cfg.Address,
			Filter:    cfg.Filter,
			Interface: cfg.Interface,
		})
	}
	return nil
}

// printListings writes one block per device with its DFU interfaces and
// DfuSe memory segments.
func printListings(w io.Writer, listings []dfu.Listing) {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No devices found in DFU mode")
		return
	}

	for _, l := range listings {
		fmt.Fprintln(w, l.Device)
		for _, intf := range l.Interfaces {
			fmt.Fprintf(w, "  intf %d alt %d name=%q\n", intf.Number, intf.Alternate, intf.Name)
			for _, seg := range intf.Layout {
				fmt.Fprintf(w, "    %s\n", formatSegment(seg))
			}
		}
	}
}

func formatSegment(seg protocol.Segment) string {
	size, unit := seg.PageSize, ""
	if size > protocol.KiB {
		size, unit = size/protocol.KiB, "K"
	}
	return fmt.Sprintf("0x%x %2d pages of %3d%s bytes", seg.StartAddr, seg.PageCount, size, unit)
}

// newProgressPrinter returns a callback drawing a single-line progress bar.
func newProgressPrinter(w io.Writer) dfu.ProgressCallback {
	const width = 40
	return func(p dfu.Progress) {
		switch p.Phase {
		case dfu.PhaseDownloading:
			filled := int(p.Percentage / 100 * width)
			bar := make([]byte, width)
			for i := range bar {
				if i < filled {
					bar[i] = '#'
				} else {
					bar[i] = '.'
				}
			}
			fmt.Fprintf(w, "\rDownloading [%s] %5.1f%% %d/%d bytes", bar, p.Percentage, p.BytesSent, p.TotalBytes)
		case dfu.PhaseComplete:
			fmt.Fprintf(w, "\nDone in %s\n", p.ElapsedTime.Round(time.Millisecond))
		}
	}
}
