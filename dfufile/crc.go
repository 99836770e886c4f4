package dfufile

import "hash/crc32"

// Checksum computes the DFU suffix CRC over data: the one's complement of
// the standard CRC-32 (ISO-HDLC, reflected polynomial 0xEDB88320).
//
// data must be the whole file without its trailing 4-byte CRC field.
func Checksum(data []byte) uint32 {
	return ^crc32.ChecksumIEEE(data)
}
