package dfufile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testImage builds a two-target container image.
func testImage() *Image {
	return &Image{
		Prefix: &Prefix{Version: 1},
		Targets: []*Target{
			{
				AltSetting: 0,
				Named:      true,
				Name:       "ST...",
				Elements: []*Element{
					{Address: 0x08000000, Data: bytes.Repeat([]byte{0xAA}, 300)},
					{Address: 0x08004000, Data: []byte{0x01, 0x02, 0x03}},
				},
			},
			{
				AltSetting: 1,
				Elements: []*Element{
					{Address: 0x1FFFC000, Data: []byte{0xEF, 0xBE}},
				},
			},
		},
		Suffix: &Suffix{Device: 0x2200, Product: 0xDF11, Vendor: 0x0483},
	}
}

func encodeTestImage(t *testing.T) []byte {
	t.Helper()
	data, err := Encode(testImage())
	require.NoError(t, err)
	return data
}

// recrc rewrites the stored CRC after a deliberate structural edit.
func recrc(data []byte) []byte {
	binary.LittleEndian.PutUint32(data[len(data)-CRCSize:], Checksum(data[:len(data)-CRCSize]))
	return data
}

func TestChecksum(t *testing.T) {
	// standard CRC-32 check value is 0xCBF43926
	assert.Equal(t, uint32(0x340BC6D9), Checksum([]byte("123456789")))
	assert.Equal(t, uint32(0xFFFFFFFF), Checksum(nil))
}

func TestDecodeContainer(t *testing.T) {
	data := encodeTestImage(t)

	img, err := DecodeContainer(data)
	require.NoError(t, err)

	assert.True(t, img.IsContainer())
	assert.True(t, img.Addressed)
	assert.Equal(t, uint8(1), img.Prefix.Version)
	assert.Equal(t, uint8(2), img.Prefix.TargetCount)
	assert.Equal(t, uint32(len(data)-SuffixSize), img.Prefix.Size)

	require.Len(t, img.Targets, 2)
	assert.Equal(t, "ST...", img.Targets[0].Name)
	assert.True(t, img.Targets[0].Named)
	assert.Equal(t, "", img.Targets[1].Name)
	assert.Equal(t, uint8(1), img.Targets[1].AltSetting)
	assert.Equal(t, uint32(2*ElementHeaderSize+303), img.Targets[0].Size)

	require.Len(t, img.Elements, 3)
	assert.Equal(t, uint32(0x08000000), img.Elements[0].Address)
	assert.Len(t, img.Elements[0].Data, 300)
	assert.Equal(t, 0, img.Elements[0].Ordinal)
	assert.Equal(t, 1, img.Elements[1].Index)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, img.Elements[1].Data)
	assert.Equal(t, 1, img.Elements[2].Ordinal)
	assert.Equal(t, 0, img.Elements[2].Index)
	assert.Equal(t, 305, img.Size())

	assert.Equal(t, uint16(0x0483), img.Suffix.Vendor)
	assert.Equal(t, uint16(0xDF11), img.Suffix.Product)
	assert.Equal(t, uint16(0x2200), img.Suffix.Device)
	assert.Equal(t, uint16(DfuseSpecVersion), img.Suffix.DFUSpec)
	assert.Equal(t, uint8(SuffixSize), img.Suffix.Length)
	assert.Equal(t, binary.LittleEndian.Uint32(data[len(data)-4:]), img.Suffix.CRC)
}

func TestContainerRoundTrip(t *testing.T) {
	original := encodeTestImage(t)

	// garbage after the NUL in a name field must survive re-encoding
	nameOff := PrefixSize + 6 + 1 + 4
	copy(original[nameOff+10:], "junk")
	original = recrc(original)

	img, err := DecodeContainer(original)
	require.NoError(t, err)

	again, err := Encode(img)
	require.NoError(t, err)
	assert.Equal(t, original, again)
	assert.Equal(t, img.Suffix.CRC, Checksum(again[:len(again)-CRCSize]))
}

func TestContainerRenameTarget(t *testing.T) {
	img, err := DecodeContainer(encodeTestImage(t))
	require.NoError(t, err)

	img.Targets[0].Name = "Option Bytes"
	data, err := Encode(img)
	require.NoError(t, err)

	again, err := DecodeContainer(data)
	require.NoError(t, err)
	assert.Equal(t, "Option Bytes", again.Targets[0].Name)
}

func TestDecodeContainerCorruptedByte(t *testing.T) {
	original := encodeTestImage(t)

	// every byte except the CRC field itself
	for i := 0; i < len(original)-CRCSize; i++ {
		data := append([]byte(nil), original...)
		data[i] ^= 0x5A

		img, err := DecodeContainer(data)
		require.Nil(t, img, "offset %d", i)

		var crcErr *ChecksumMismatchError
		require.True(t, errors.As(err, &crcErr), "offset %d: %v", i, err)
	}
}

func TestDecodeContainerMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		errMsg string
	}{
		{
			name: "bad prefix signature",
			mutate: func(d []byte) []byte {
				d[0] = 'X'
				return d
			},
			errMsg: "missing DfuSe signature",
		},
		{
			name: "prefix size mismatch",
			mutate: func(d []byte) []byte {
				binary.LittleEndian.PutUint32(d[6:10], 12)
				return d
			},
			errMsg: "does not match file size",
		},
		{
			name: "bad target signature",
			mutate: func(d []byte) []byte {
				d[PrefixSize] = 'X'
				return d
			},
			errMsg: "missing Target signature",
		},
		{
			name: "leftover bytes in target",
			mutate: func(d []byte) []byte {
				// one fewer element than the payload holds
				countOff := PrefixSize + TargetPrefixSize - 4
				binary.LittleEndian.PutUint32(d[countOff:], 1)
				return d
			},
			errMsg: "leftover bytes after 1 elements",
		},
		{
			name: "element larger than target",
			mutate: func(d []byte) []byte {
				sizeOff := PrefixSize + TargetPrefixSize + 4
				binary.LittleEndian.PutUint32(d[sizeOff:], 10000)
				return d
			},
			errMsg: "element 0 size 10000 exceeds",
		},
		{
			name: "target larger than file",
			mutate: func(d []byte) []byte {
				sizeOff := PrefixSize + TargetPrefixSize - 8
				binary.LittleEndian.PutUint32(d[sizeOff:], 1<<20)
				return d
			},
			errMsg: "target size 1048576 exceeds",
		},
		{
			name: "bad suffix marker",
			mutate: func(d []byte) []byte {
				d[len(d)-8] = 'X'
				return d
			},
			errMsg: "missing UFD suffix marker",
		},
		{
			name: "bad suffix length",
			mutate: func(d []byte) []byte {
				d[len(d)-5] = 12
				return d
			},
			errMsg: "invalid suffix length 12",
		},
		{
			name: "not a DfuSe suffix",
			mutate: func(d []byte) []byte {
				binary.LittleEndian.PutUint16(d[len(d)-10:], 0x0100)
				return d
			},
			errMsg: "unsupported DFU spec version 0x0100",
		},
		{
			name: "trailing bytes after suffix",
			mutate: func(d []byte) []byte {
				d = append(d, make([]byte, 8)...)
				binary.LittleEndian.PutUint32(d[6:10], uint32(len(d)-SuffixSize))
				return d
			},
			errMsg: "8 trailing bytes after suffix",
		},
		{
			name: "too short",
			mutate: func(d []byte) []byte {
				return d[:20]
			},
			errMsg: "file too short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := recrc(tt.mutate(encodeTestImage(t)))

			img, err := DecodeContainer(data)
			require.Error(t, err)
			assert.Nil(t, img)

			var malformed *MalformedContainerError
			require.True(t, errors.As(err, &malformed), "got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDecodeFlat(t *testing.T) {
	data := bytes.Repeat([]byte{0xBB}, 1<<17)

	img, err := Decode(data, FlatAt(0x08000000))
	require.NoError(t, err)
	assert.False(t, img.IsContainer())
	assert.True(t, img.Addressed)
	require.Len(t, img.Elements, 1)
	assert.Equal(t, uint32(0x08000000), img.Elements[0].Address)
	assert.Equal(t, data, img.Elements[0].Data)

	// the image owns its bytes
	data[0] = 0x00
	assert.Equal(t, byte(0xBB), img.Elements[0].Data[0])

	img, err = Decode([]byte{1, 2, 3}, Flat{})
	require.NoError(t, err)
	assert.False(t, img.Addressed)

	_, err = Decode(nil, Flat{})
	assert.ErrorContains(t, err, "empty file")
}

func TestParse(t *testing.T) {
	dir := t.TempDir()

	dfuPath := filepath.Join(dir, "firmware.dfu")
	require.NoError(t, os.WriteFile(dfuPath, encodeTestImage(t), 0o644))

	img, err := Parse(dfuPath, SourceForPath(dfuPath, nil))
	require.NoError(t, err)
	assert.Len(t, img.Elements, 3)

	binPath := filepath.Join(dir, "firmware.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{1, 2, 3, 4}, 0o644))

	addr := uint32(0x08008000)
	img, err = Parse(binPath, SourceForPath(binPath, &addr))
	require.NoError(t, err)
	require.Len(t, img.Elements, 1)
	assert.Equal(t, addr, img.Elements[0].Address)

	_, err = Parse(filepath.Join(dir, "missing.bin"), Flat{})
	assert.ErrorContains(t, err, "failed to open file")
}

func TestSourceForPath(t *testing.T) {
	addr := uint32(0x08000000)

	assert.Equal(t, Container{}, SourceForPath("fw.dfu", nil))
	assert.Equal(t, Container{}, SourceForPath("FW.DFU", &addr))
	assert.Equal(t, Flat{}, SourceForPath("fw.bin", nil))
	assert.Equal(t, FlatAt(addr), SourceForPath("fw.bin", &addr))
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)

	_, err = Encode(&Image{})
	assert.ErrorContains(t, err, "no targets")
}
