package usbhost

import (
	"errors"
	"fmt"

	"github.com/google/gousb"

	"github.com/moffa90/go-dfuse/dfu"
)

// mapError classifies a libusb error so the engine can recognise timeouts
// and stalls. The original error stays in the chain.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gousb.ErrorTimeout):
		return fmt.Errorf("%w: %w", dfu.ErrTransferTimeout, err)
	case errors.Is(err, gousb.ErrorPipe):
		return fmt.Errorf("%w: %w", dfu.ErrPipe, err)
	}
	return err
}
