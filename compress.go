// Compression for block payloads.
//
// When Config.Compress is set, the encoded paths of a block are stored
// zstd-compressed. The flag byte at the start of each block file records
// which form was written, so files of both kinds can coexist in one object
// file.
package sky

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Shared encoder/decoder, both safe for concurrent use. Construction is
// expensive so they are built once.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

func compress(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	return zstdEncoder.EncodeAll(data, nil)
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorruptFormat, err)
	}
	return out, nil
}
