package dfufile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Container layout constants.
const (
	// PrefixSize is the size of the container prefix
	PrefixSize = 11

	// TargetPrefixSize is the size of each target prefix
	TargetPrefixSize = 274

	// TargetNameSize is the size of the NUL-padded target name field
	TargetNameSize = 255

	// ElementHeaderSize is the size of each element header (address + size)
	ElementHeaderSize = 8

	// SuffixSize is the size of the DFU suffix
	SuffixSize = 16

	// CRCSize is the size of the trailing CRC field
	CRCSize = 4

	// DfuseSpecVersion is the bcdDFU value of DfuSe containers
	DfuseSpecVersion = 0x011A
)

var (
	prefixSignature = []byte("DfuSe")
	targetSignature = []byte("Target")
	suffixMarker    = []byte("UFD")
)

// Parse reads a firmware file from disk and decodes it according to src.
//
// Example:
//
//	img, err := dfufile.Parse("firmware.dfu", dfufile.Container{})
//	img, err := dfufile.Parse("firmware.bin", dfufile.FlatAt(0x08000000))
func Parse(path string, src Source) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f, src)
}

// ParseReader reads all of r and decodes it according to src.
func ParseReader(r io.Reader, src Source) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Decode(data, src)
}

// Decode decodes data according to src.
func Decode(data []byte, src Source) (*Image, error) {
	switch s := src.(type) {
	case Flat:
		return decodeFlat(data, s)
	case Container:
		return DecodeContainer(data)
	default:
		return nil, fmt.Errorf("unsupported image source %T", src)
	}
}

func decodeFlat(data []byte, src Flat) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	elem := &Element{
		Address: src.Address,
		Data:    make([]byte, len(data)),
	}
	copy(elem.Data, data)

	return &Image{
		Elements:  []*Element{elem},
		Addressed: src.Addressed,
	}, nil
}

// DecodeContainer decodes a DfuSe container.
//
// The suffix CRC is verified before anything else, so a corrupted file
// always fails with ChecksumMismatchError and no partial image is returned.
//
// File format (little-endian):
//
//	prefix:  "DfuSe" version(1) size(4) targets(1)
//	target:  "Target" alt(1) named(4) name(255) size(4) elements(4) payload(size)
//	element: address(4) size(4) data(size)
//	suffix:  device(2) product(2) vendor(2) dfu(2) "UFD" length(1) crc(4)
func DecodeContainer(data []byte) (*Image, error) {
	if len(data) < PrefixSize+SuffixSize {
		return nil, &MalformedContainerError{
			Offset: 0, Target: -1,
			Reason: fmt.Sprintf("file too short: %d bytes", len(data)),
		}
	}

	stored := binary.LittleEndian.Uint32(data[len(data)-CRCSize:])
	if computed := Checksum(data[:len(data)-CRCSize]); computed != stored {
		return nil, &ChecksumMismatchError{Expected: stored, Actual: computed}
	}

	c := &cursor{data: data, target: -1}

	// Prefix
	if !bytes.Equal(c.next(len(prefixSignature)), prefixSignature) {
		return nil, c.fail(0, "missing DfuSe signature")
	}
	prefix := &Prefix{
		Version:     c.u8(),
		Size:        c.u32(),
		TargetCount: c.u8(),
	}
	if int(prefix.Size) != len(data)-SuffixSize {
		return nil, c.fail(5, fmt.Sprintf("prefix size %d does not match file size %d without suffix",
			prefix.Size, len(data)-SuffixSize))
	}

	img := &Image{
		Addressed: true,
		Prefix:    prefix,
		Targets:   make([]*Target, 0, prefix.TargetCount),
	}

	// Targets
	for i := 0; i < int(prefix.TargetCount); i++ {
		c.target = i
		target, err := c.readTarget(i)
		if err != nil {
			return nil, err
		}
		img.Targets = append(img.Targets, target)
		img.Elements = append(img.Elements, target.Elements...)
	}
	c.target = -1

	// Suffix
	if c.remaining() < SuffixSize {
		return nil, c.fail(c.off, "truncated suffix")
	}
	suffixStart := c.off
	suffix := &Suffix{
		Device:  c.u16(),
		Product: c.u16(),
		Vendor:  c.u16(),
		DFUSpec: c.u16(),
	}
	if !bytes.Equal(c.next(len(suffixMarker)), suffixMarker) {
		return nil, c.fail(suffixStart+8, "missing UFD suffix marker")
	}
	suffix.Length = c.u8()
	suffix.CRC = c.u32()

	if suffix.DFUSpec != DfuseSpecVersion {
		return nil, c.fail(suffixStart+6, fmt.Sprintf("unsupported DFU spec version 0x%04X", suffix.DFUSpec))
	}
	if suffix.Length != SuffixSize {
		return nil, c.fail(suffixStart+11, fmt.Sprintf("invalid suffix length %d", suffix.Length))
	}
	if c.remaining() != 0 {
		return nil, c.fail(c.off, fmt.Sprintf("%d trailing bytes after suffix", c.remaining()))
	}

	img.Suffix = suffix
	return img, nil
}

// readTarget decodes one target prefix and its elements.
func (c *cursor) readTarget(ordinal int) (*Target, error) {
	start := c.off
	if c.remaining() < TargetPrefixSize {
		return nil, c.fail(start, "truncated target prefix")
	}
	if !bytes.Equal(c.next(len(targetSignature)), targetSignature) {
		return nil, c.fail(start, "missing Target signature")
	}

	t := &Target{
		AltSetting: c.u8(),
		Named:      c.u32() != 0,
	}
	copy(t.rawName[:], c.next(TargetNameSize))
	if t.Named {
		t.Name = cString(t.rawName[:])
	}
	t.Size = c.u32()
	count := c.u32()

	payloadStart := c.off
	if uint64(t.Size) > uint64(c.remaining()) {
		return nil, c.fail(payloadStart, fmt.Sprintf("target size %d exceeds remaining %d bytes", t.Size, c.remaining()))
	}
	payload := &cursor{data: c.next(int(t.Size)), base: payloadStart, target: ordinal}

	for i := uint32(0); i < count; i++ {
		if payload.remaining() < ElementHeaderSize {
			return nil, payload.fail(payload.abs(), fmt.Sprintf("truncated header of element %d", i))
		}
		addr := payload.u32()
		size := payload.u32()
		if uint64(size) > uint64(payload.remaining()) {
			return nil, payload.fail(payload.abs(), fmt.Sprintf("element %d size %d exceeds remaining %d bytes",
				i, size, payload.remaining()))
		}

		elem := &Element{
			Address: addr,
			Data:    make([]byte, size),
			Ordinal: ordinal,
			Index:   int(i),
		}
		copy(elem.Data, payload.next(int(size)))
		t.Elements = append(t.Elements, elem)
	}

	if payload.remaining() != 0 {
		return nil, payload.fail(payload.abs(), fmt.Sprintf("%d leftover bytes after %d elements", payload.remaining(), count))
	}

	return t, nil
}

// cursor reads little-endian fields from a byte slice. Callers check
// remaining() before reading.
type cursor struct {
	data   []byte
	off    int
	base   int
	target int
}

func (c *cursor) remaining() int { return len(c.data) - c.off }
func (c *cursor) abs() int       { return c.base + c.off }

func (c *cursor) next(n int) []byte {
	b := c.data[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) u8() uint8   { return c.next(1)[0] }
func (c *cursor) u16() uint16 { return binary.LittleEndian.Uint16(c.next(2)) }
func (c *cursor) u32() uint32 { return binary.LittleEndian.Uint32(c.next(4)) }

func (c *cursor) fail(offset int, reason string) error {
	return &MalformedContainerError{Offset: offset, Target: c.target, Reason: reason}
}

// cString returns b up to the first NUL byte.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
