// Metadata file for an object file.
//
// The meta file is a single JSON object written when an object file is first
// opened. It pins the settings that existing block files depend on: the
// checksum algorithm in particular must not change once blocks exist.
package sky

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// MetaVersion is the current meta file format version.
const MetaVersion = 1

const metaFile = "meta"

// Meta describes how an object file's blocks were written.
type Meta struct {
	Version    int    `json:"_v"`   // Format version
	Timestamp  int64  `json:"_ts"`  // Unix milliseconds when created
	Algorithm  int    `json:"_alg"` // Block checksum algorithm
	RangeWidth uint64 `json:"_w"`   // Id window width for new blocks
	Compress   bool   `json:"_z"`   // New blocks are zstd-compressed
}

// loadMeta reads dir/meta. It returns nil, nil if the file does not exist.
func loadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read meta: %w", ErrIO, err)
	}

	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: meta: %w", ErrCorruptFormat, err)
	}
	if m.Version != MetaVersion || !validAlgorithm(m.Algorithm) || m.RangeWidth == 0 {
		return nil, fmt.Errorf("%w: meta: unsupported version %d or settings", ErrCorruptFormat, m.Version)
	}
	return &m, nil
}

// newMeta builds the meta record for a fresh object file.
func newMeta(cfg Config) *Meta {
	return &Meta{
		Version:    MetaVersion,
		Timestamp:  time.Now().UnixMilli(),
		Algorithm:  cfg.Checksum,
		RangeWidth: cfg.BlockRangeWidth,
		Compress:   cfg.Compress,
	}
}

// persist writes m to dir/meta.
func (m *Meta) persist(dir string, sync bool) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	return writeFile(filepath.Join(dir, metaFile), append(data, '\n'), sync)
}
