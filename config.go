// Engine configuration.
//
// Zero values are replaced with defaults when a Database is created, so a
// literal Config{} is always usable. LoadConfig reads the same fields from a
// YAML file for tools that keep settings next to the data.
package sky

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultMaxBlockSize    = 64 * 1024
	DefaultBlockRangeWidth = 1024
)

// Config holds engine configuration options.
type Config struct {
	MaxBlockSize    int          `yaml:"max_block_size"`    // Split threshold for encoded block payloads
	BlockRangeWidth uint64       `yaml:"block_range_width"` // Width of the id window given to a new block
	Checksum        int          `yaml:"checksum"`          // 1=xxHash3, 2=FNV1a, 3=Blake2b
	Compress        bool         `yaml:"compress"`          // zstd-compress block payloads
	SyncWrites      bool         `yaml:"sync_writes"`       // fsync files before rename
	Logger          *slog.Logger `yaml:"-"`
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.MaxBlockSize <= 0 {
		c.MaxBlockSize = DefaultMaxBlockSize
	}
	if c.BlockRangeWidth == 0 {
		c.BlockRangeWidth = DefaultBlockRangeWidth
	}
	if c.Checksum == 0 {
		c.Checksum = AlgXXHash3
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// LoadConfig reads a YAML config file. Missing fields keep their zero value
// and pick up defaults later.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: read config: %w", ErrIO, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse config %s: %w", ErrCorruptFormat, path, err)
	}
	switch cfg.Checksum {
	case 0, AlgXXHash3, AlgFNV1a, AlgBlake2b:
	default:
		return cfg, fmt.Errorf("%w: unknown checksum algorithm %d", ErrCorruptFormat, cfg.Checksum)
	}
	return cfg, nil
}
