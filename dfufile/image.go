package dfufile

// Image is a decoded firmware image ready to be downloaded.
// It is built once from a file and never modified afterwards.
type Image struct {
	// Elements lists every element of every target, in file order
	Elements []*Element

	// Addressed is false only for flat binaries loaded without an address
	Addressed bool

	// Prefix, Targets and Suffix are set for container images only
	Prefix  *Prefix
	Targets []*Target
	Suffix  *Suffix
}

// Size returns the total number of payload bytes across all elements.
func (img *Image) Size() int {
	n := 0
	for _, e := range img.Elements {
		n += len(e.Data)
	}
	return n
}

// IsContainer reports whether the image was decoded from a DfuSe container.
func (img *Image) IsContainer() bool {
	return img.Prefix != nil
}

// Element is a contiguous block of firmware destined for one address.
type Element struct {
	// Address is the device address of the first byte
	Address uint32

	// Data is the element payload
	Data []byte

	// Ordinal is the index of the target the element belongs to
	Ordinal int

	// Index is the position of the element within its target
	Index int
}

// Prefix is the DfuSe container header.
type Prefix struct {
	// Version is the container format version (1)
	Version uint8

	// Size is the file size excluding the suffix
	Size uint32

	// TargetCount is the number of targets that follow
	TargetCount uint8
}

// Target is one image of a DfuSe container, bound to an alternate setting.
type Target struct {
	// AltSetting is the DFU interface alternate setting the target is written through
	AltSetting uint8

	// Named reports whether Name is meaningful
	Named bool

	// Name is the target name, empty when Named is false
	Name string

	// Size is the number of payload bytes following the target prefix
	Size uint32

	// Elements are the elements of this target
	Elements []*Element

	// rawName keeps the on-disk name field so re-encoding is byte exact
	rawName [TargetNameSize]byte
}

// Suffix is the DFU file suffix found in the last SuffixSize bytes.
type Suffix struct {
	// Device is bcdDevice, the firmware version
	Device uint16

	// Product is the USB product id, 0xFFFF when unused
	Product uint16

	// Vendor is the USB vendor id, 0xFFFF when unused
	Vendor uint16

	// DFUSpec is bcdDFU, 0x011A for DfuSe containers
	DFUSpec uint16

	// Length is bLength, always SuffixSize
	Length uint8

	// CRC is the stored dwCRC
	CRC uint32
}
