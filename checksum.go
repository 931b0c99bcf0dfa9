// Checksum algorithms for block files.
//
// Every block file ends with an 8-byte checksum of its stored payload. The
// algorithm is chosen once per object file and recorded in its meta file, so
// changing Config.Checksum later does not invalidate existing blocks.
package sky

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Checksum algorithm constants.
const (
	AlgXXHash3 = 1 // Default, fastest
	AlgFNV1a   = 2 // No external dependencies
	AlgBlake2b = 3 // Strongest
)

// checksum returns a 64-bit digest of data using the given algorithm.
func checksum(data []byte, alg int) uint64 {
	switch alg {
	case AlgXXHash3:
		return xxh3.Hash(data)
	case AlgFNV1a:
		h := fnv.New64a()
		h.Write(data)
		return h.Sum64()
	case AlgBlake2b:
		h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
		h.Write(data)
		return binary.LittleEndian.Uint64(h.Sum(nil))
	default:
		return 0
	}
}

func validAlgorithm(alg int) bool {
	return alg == AlgXXHash3 || alg == AlgFNV1a || alg == AlgBlake2b
}
