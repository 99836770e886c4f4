// Package dfufile decodes firmware images for DFU downloads.
//
// # Sources
//
// An image comes from one of two sources, chosen once by the caller:
//
//	dfufile.FlatAt(0x08000000) // raw binary, one element at the given address
//	dfufile.Flat{}             // raw binary without an address (plain DFU targets)
//	dfufile.Container{}        // DfuSe .dfu container
//
// SourceForPath applies the usual convention of treating ".dfu" files as
// containers.
//
// # DfuSe Container Format
//
// All multi-byte fields are little-endian:
//
//	Prefix   "DfuSe" | version u8 | size u32 | targets u8
//	Target   "Target" | alt u8 | named u32 | name [255] | size u32 | elements u32
//	Element  address u32 | size u32 | data [size]
//	Suffix   bcdDevice u16 | idProduct u16 | idVendor u16 | bcdDFU u16 | "UFD" | 16 u8 | crc u32
//
// The CRC is the one's complement of the standard CRC-32 over every byte
// of the file except the CRC field itself.
//
// # Usage
//
//	img, err := dfufile.Parse("firmware.dfu", dfufile.Container{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, e := range img.Elements {
//	    fmt.Printf("target %d element %d: 0x%08X, %d bytes\n",
//	        e.Ordinal, e.Index, e.Address, len(e.Data))
//	}
//
// # Error Handling
//
// Decoding fails as a whole; no partial image is ever returned.
//   - ChecksumMismatchError: the stored CRC does not match the file
//   - MalformedContainerError: bad signature, inconsistent sizes or leftover bytes
package dfufile
