// Package hash provides the checksum used by the table file format.
//
// Table files are protected with CRC32-Castagnoli (CRC32C). Go's hash/crc32
// uses hardware instructions for this polynomial when the CPU has them.
//
//	sum := hash.CRC32C(payload)
//
// For payloads read in chunks:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum := h.Sum32()
package hash
