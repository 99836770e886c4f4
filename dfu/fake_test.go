package dfu

import (
	"github.com/moffa90/go-dfuse/protocol"
)

// controlCall is one recorded control transfer.
type controlCall struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Data        []byte
}

// fakeTarget simulates the DFU state machine of a device for testing.
// Every command leaves the device busy for busyPolls GETSTATUS requests
// before it reports idle again.
type fakeTarget struct {
	calls []controlCall

	state  protocol.State
	status protocol.StatusCode

	busyPolls int
	pending   int

	// errorOnDnload puts the device in dfuERROR after that many DNLOADs (0 = never)
	errorOnDnload int
	dnloads       int

	// pipeOnManifest stalls every request after the zero-length DNLOAD
	pipeOnManifest bool
	manifesting    bool

	// waitReset makes the device report dfuMANIFEST-WAIT-RESET after manifestation
	waitReset bool

	// fail injects a transport error for a given call
	fail func(c controlCall) error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{state: protocol.StateIdle}
}

func (f *fakeTarget) Control(requestType, request uint8, value, index uint16, data []byte) (int, error) {
	call := controlCall{
		RequestType: requestType,
		Request:     request,
		Value:       value,
		Index:       index,
	}
	if requestType == protocol.RequestTypeOut && len(data) > 0 {
		call.Data = append([]byte(nil), data...)
	}
	f.calls = append(f.calls, call)

	if f.fail != nil {
		if err := f.fail(call); err != nil {
			return 0, err
		}
	}
	if f.manifesting && f.pipeOnManifest {
		return 0, ErrPipe
	}

	switch request {
	case protocol.RequestDnload:
		f.dnloads++
		f.pending = f.busyPolls
		if len(data) == 0 {
			f.manifesting = true
			f.state = protocol.StateManifestSync
		} else {
			f.state = protocol.StateDownloadBusy
		}
		if f.errorOnDnload > 0 && f.dnloads >= f.errorOnDnload {
			f.state = protocol.StateError
			f.status = protocol.StatusErrWrite
		}
		if f.manifesting && f.pipeOnManifest {
			return 0, ErrPipe
		}
		return len(data), nil

	case protocol.RequestClrStatus:
		f.state = protocol.StateIdle
		f.status = protocol.StatusOK
		return 0, nil

	case protocol.RequestGetStatus:
		reported := f.state
		switch {
		case f.state == protocol.StateError:
		case f.pending > 0:
			f.pending--
			if f.manifesting {
				reported = protocol.StateManifest
			} else {
				reported = protocol.StateDownloadBusy
			}
		default:
			f.settle()
			reported = f.state
		}
		n := copy(data, []byte{byte(f.status), 0, 0, 0, byte(reported), 0})
		return n, nil
	}

	return 0, ErrPipe
}

// settle moves a device that finished its command to the next idle state.
func (f *fakeTarget) settle() {
	switch f.state {
	case protocol.StateDownloadBusy, protocol.StateDownloadSync:
		f.state = protocol.StateDownloadIdle
	case protocol.StateManifestSync, protocol.StateManifest:
		if f.waitReset {
			f.state = protocol.StateManifestWaitReset
		} else {
			f.state = protocol.StateIdle
		}
		f.manifesting = false
	}
}

// dnloadCalls returns the recorded DNLOAD requests.
func (f *fakeTarget) dnloadCalls() []controlCall {
	var out []controlCall
	for _, c := range f.calls {
		if c.Request == protocol.RequestDnload {
			out = append(out, c)
		}
	}
	return out
}

// count returns the number of recorded requests with the given code.
func (f *fakeTarget) count(request uint8) int {
	n := 0
	for _, c := range f.calls {
		if c.Request == request {
			n++
		}
	}
	return n
}

// MockLogger records logged messages.
type MockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Warn(msg string, kv ...interface{}) {
	l.warnMsgs = append(l.warnMsgs, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.errorMsgs = append(l.errorMsgs, msg)
}
