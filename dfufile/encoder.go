package dfufile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Encode serialises a container image. Sizes, counts and the CRC are
// recomputed; version, names and suffix identifiers come from img.
// Encoding a decoded container reproduces the original file.
func Encode(img *Image) ([]byte, error) {
	if img == nil || len(img.Targets) == 0 {
		return nil, fmt.Errorf("image has no targets")
	}
	if len(img.Targets) > 0xFF {
		return nil, fmt.Errorf("too many targets: %d", len(img.Targets))
	}

	var buf bytes.Buffer

	version := uint8(1)
	if img.Prefix != nil {
		version = img.Prefix.Version
	}
	buf.Write(prefixSignature)
	buf.WriteByte(version)
	put32(&buf, 0)
	buf.WriteByte(uint8(len(img.Targets)))

	for _, t := range img.Targets {
		size := 0
		for _, e := range t.Elements {
			size += ElementHeaderSize + len(e.Data)
		}

		buf.Write(targetSignature)
		buf.WriteByte(t.AltSetting)
		if t.Named {
			put32(&buf, 1)
		} else {
			put32(&buf, 0)
		}
		buf.Write(t.nameField())
		put32(&buf, uint32(size))
		put32(&buf, uint32(len(t.Elements)))

		for _, e := range t.Elements {
			put32(&buf, e.Address)
			put32(&buf, uint32(len(e.Data)))
			buf.Write(e.Data)
		}
	}

	// prefix size covers everything but the suffix
	binary.LittleEndian.PutUint32(buf.Bytes()[6:10], uint32(buf.Len()))

	suffix := Suffix{Device: 0xFFFF, Product: 0xFFFF, Vendor: 0xFFFF}
	if img.Suffix != nil {
		suffix = *img.Suffix
	}
	put16(&buf, suffix.Device)
	put16(&buf, suffix.Product)
	put16(&buf, suffix.Vendor)
	put16(&buf, DfuseSpecVersion)
	buf.Write(suffixMarker)
	buf.WriteByte(SuffixSize)
	put32(&buf, Checksum(buf.Bytes()))

	return buf.Bytes(), nil
}

// nameField returns the 255-byte on-disk name. The decoded field is
// reused as long as Name still matches it.
func (t *Target) nameField() []byte {
	var zero [TargetNameSize]byte
	if t.rawName != zero && (cString(t.rawName[:]) == t.Name || !t.Named && t.Name == "") {
		return t.rawName[:]
	}
	field := make([]byte, TargetNameSize)
	copy(field[:TargetNameSize-1], t.Name)
	return field
}

func put16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func put32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
