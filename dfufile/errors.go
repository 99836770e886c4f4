package dfufile

import "fmt"

// MalformedContainerError indicates a container whose structure is invalid:
// a bad signature, inconsistent lengths or leftover bytes.
type MalformedContainerError struct {
	// Offset is the file offset where the problem was detected
	Offset int

	// Target is the index of the target being decoded, or -1
	Target int

	// Reason describes what was wrong
	Reason string
}

func (e *MalformedContainerError) Error() string {
	if e.Target >= 0 {
		return fmt.Sprintf("malformed container at offset %d (target %d): %s", e.Offset, e.Target, e.Reason)
	}
	return fmt.Sprintf("malformed container at offset %d: %s", e.Offset, e.Reason)
}

// ChecksumMismatchError indicates that the stored CRC does not match the file contents.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("container checksum mismatch: suffix has 0x%08X, computed 0x%08X",
		e.Expected, e.Actual)
}
