package gsc

import (
	"hash/crc32"

	"github.com/yoremi/cerberus-go/pkg/decerr"
)

// ScanByteCodeSize recovers the length of an export's byte code, which is
// not stored on disk. Starting at start, the CRC32 (IEEE) is updated one
// byte at a time; the length is that of the shortest prefix whose CRC
// equals checksum. Reaching the end of data without a match is an error.
func ScanByteCodeSize(data []byte, start int, checksum uint32) (int, error) {
	if start < 0 || start > len(data) {
		return 0, decerr.Corrupt(nil, "byte code start 0x%x outside buffer (0x%x)", start, len(data))
	}
	var crc uint32
	for i := start; i < len(data); i++ {
		crc = crc32.Update(crc, crc32.IEEETable, data[i:i+1])
		if crc == checksum {
			return i + 1 - start, nil
		}
	}
	return 0, decerr.Corrupt(nil, "checksum 0x%08x not matched between 0x%x and end of buffer 0x%x", checksum, start, len(data))
}
