package dfu

import (
	"context"
	"fmt"
	"time"

	"github.com/moffa90/go-dfuse/protocol"
)

// Transport issues control transfers on endpoint 0.
// Implementations map their timeout and stall conditions onto
// ErrTransferTimeout and ErrPipe.
type Transport interface {
	Control(requestType, request uint8, value, index uint16, data []byte) (int, error)
}

// TimeoutSetter is implemented by transports with a configurable
// per-transfer timeout. NewSession applies Config.Timeout through it.
type TimeoutSetter interface {
	SetControlTimeout(timeout time.Duration) error
}

// Session drives the DFU state machine of one claimed interface.
// Every command is a blocking control transfer followed, where the
// command changes state, by GETSTATUS polls until the device is idle.
//
// A Session is not safe for concurrent use.
type Session struct {
	transport Transport
	iface     uint16
	config    Config
}

// NewSession returns a Session issuing requests to interface iface through t.
func NewSession(t Transport, iface uint16, opts ...Option) *Session {
	if t == nil {
		panic("transport cannot be nil")
	}
	s := &Session{
		transport: t,
		iface:     iface,
		config:    newConfig(opts),
	}
	if ts, ok := t.(TimeoutSetter); ok && s.config.Timeout > 0 {
		if err := ts.SetControlTimeout(s.config.Timeout); err != nil {
			s.logDebug("transport timeout not applied", "error", err.Error())
		}
	}
	return s
}

// GetStatus issues GETSTATUS and returns the decoded response.
// It does not interpret the reported state.
func (s *Session) GetStatus(ctx context.Context) (*protocol.Status, error) {
	buf := make([]byte, protocol.StatusResponseSize)
	n, err := s.transport.Control(protocol.RequestTypeIn, protocol.RequestGetStatus, 0, s.iface, buf)
	if err != nil {
		return nil, &TransportError{Op: "get status", Err: err}
	}

	status, err := protocol.ParseStatus(buf[:n])
	if err != nil {
		return nil, &TransportError{Op: "get status", Err: err}
	}
	return status, nil
}

// GetState issues GETSTATUS and returns the reported state.
// A device in dfuERROR yields a DeviceError.
func (s *Session) GetState(ctx context.Context) (protocol.State, error) {
	status, err := s.GetStatus(ctx)
	if err != nil {
		return 0, err
	}

	s.logDebug("status", "state", status.State.String(), "status", status.Code.String())

	if status.State == protocol.StateError {
		return status.State, &DeviceError{Op: "get state", State: status.State, Status: status.Code}
	}
	return status.State, nil
}

// ClearStatus issues CLRSTATUS to clear an error left by a previous
// session, then waits for the device to become idle.
func (s *Session) ClearStatus(ctx context.Context) error {
	if _, err := s.transport.Control(protocol.RequestTypeOut, protocol.RequestClrStatus, 0, s.iface, nil); err != nil {
		return &TransportError{Op: "clear status", Err: err}
	}
	if _, err := s.waitReady(ctx, false); err != nil {
		return fmt.Errorf("clear status: %w", err)
	}
	return nil
}

// Download issues DNLOAD with the given transaction id (wValue) and payload,
// then waits until the device has processed it. A nil or empty payload is
// the zero-length download that ends a transfer and starts manifestation.
func (s *Session) Download(ctx context.Context, transaction uint16, data []byte) error {
	if _, err := s.transport.Control(protocol.RequestTypeOut, protocol.RequestDnload, transaction, s.iface, data); err != nil {
		return &TransportError{Op: "download", Err: err}
	}
	if _, err := s.waitReady(ctx, len(data) == 0); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}

// SetAddress sets the DfuSe address pointer used by the next data download.
func (s *Session) SetAddress(ctx context.Context, addr uint32) error {
	if err := s.Download(ctx, protocol.DfuseCommandTransaction, protocol.BuildSetAddressCmd(addr)); err != nil {
		return fmt.Errorf("set address 0x%08X: %w", addr, err)
	}
	return nil
}

// PageErase erases the DfuSe page containing addr.
func (s *Session) PageErase(ctx context.Context, addr uint32) error {
	if err := s.Download(ctx, protocol.DfuseCommandTransaction, protocol.BuildEraseCmd(addr)); err != nil {
		return fmt.Errorf("erase page 0x%08X: %w", addr, err)
	}
	return nil
}

// MassErase erases the whole DfuSe target.
func (s *Session) MassErase(ctx context.Context) error {
	if err := s.Download(ctx, protocol.DfuseCommandTransaction, protocol.BuildMassEraseCmd()); err != nil {
		return fmt.Errorf("mass erase: %w", err)
	}
	return nil
}

// waitReady polls the device state until it reports dfuIDLE or
// dfuDNLOAD-IDLE. When manifesting, dfuMANIFEST-WAIT-RESET also ends the
// wait since such a device does not answer again until it is reset.
func (s *Session) waitReady(ctx context.Context, manifesting bool) (protocol.State, error) {
	for polls := 0; ; polls++ {
		if s.config.PollLimit > 0 && polls >= s.config.PollLimit {
			return 0, &TransportError{
				Op:  "poll state",
				Err: fmt.Errorf("%w: device not idle after %d polls", ErrTransferTimeout, polls),
			}
		}
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("cancelled: %w", err)
		}
		if polls > 0 && s.config.PollInterval > 0 {
			time.Sleep(s.config.PollInterval)
		}

		state, err := s.GetState(ctx)
		if err != nil {
			return state, err
		}
		if state.Ready() {
			return state, nil
		}
		if manifesting && state == protocol.StateManifestWaitReset {
			return state, nil
		}
	}
}

// logDebug logs a debug message if a logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}
