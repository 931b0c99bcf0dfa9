// Blocks: the unit of storage.
//
// A block owns the paths whose object ids fall in its range and is stored as
// one file:
//
//	[u8 flags][payload][u64 checksum]
//
// flags bit 0 marks a zstd-compressed payload. The checksum covers the flag
// byte and the stored payload. The uncompressed payload is
//
//	u64 start, u64 end, u32 path count,
//	per path:  u64 object id, u32 event count,
//	per event: i64 timestamp, u32 action id, u16 property count,
//	per property: u32 id, u8 kind, value
//
// A block's Size is the uncompressed payload length. It is maintained as
// events are inserted so the split check never has to encode the block.
package sky

import (
	"encoding/binary"
	"fmt"
	"sort"
)

const (
	blockFixedSize    = 8 + 8 + 4
	blockFlagCompress = 1 << 0
)

func blockFilename(id uint32) string {
	return fmt.Sprintf("%08x.block", id)
}

// Block holds the paths of one object-id range, sorted by object id.
type Block struct {
	info  BlockInfo
	paths []Path
	size  int
}

func newBlock(info BlockInfo) *Block {
	return &Block{info: info, size: blockFixedSize}
}

// search returns the position of objectID's path, or where it would go.
func (b *Block) search(objectID uint64) (int, bool) {
	i := sort.Search(len(b.paths), func(i int) bool {
		return b.paths[i].ObjectID >= objectID
	})
	return i, i < len(b.paths) && b.paths[i].ObjectID == objectID
}

// lookup returns the path for objectID, or nil if the block has none.
func (b *Block) lookup(objectID uint64) *Path {
	if i, ok := b.search(objectID); ok {
		return &b.paths[i]
	}
	return nil
}

// insert adds e to objectID's path, creating the path if needed.
func (b *Block) insert(objectID uint64, e Event) error {
	if !b.info.Contains(objectID) {
		return fmt.Errorf("%w: object %d outside block %d [%d, %d)",
			ErrCorruptState, objectID, b.info.ID, b.info.Start, b.info.End)
	}
	i, ok := b.search(objectID)
	if !ok {
		b.paths = append(b.paths, Path{})
		copy(b.paths[i+1:], b.paths[i:])
		b.paths[i] = Path{ObjectID: objectID}
		b.size += pathFixedSize
	}
	b.paths[i].insert(e)
	b.size += e.size()
	return nil
}

// split divides b until every piece fits under limit, halving by encoded
// size at path boundaries. Each piece gets a fresh id from allocate and a
// range that keeps the pieces contiguous over b's range. A block with a
// single path cannot be split and is returned oversized. If b already fits
// it is returned unchanged.
func (b *Block) split(limit int, allocate func() uint32) []*Block {
	if b.size <= limit || len(b.paths) < 2 {
		return []*Block{b}
	}

	half := (b.size - blockFixedSize) / 2
	k, acc := 0, 0
	for k < len(b.paths)-1 {
		acc += b.paths[k].size()
		k++
		if acc >= half {
			break
		}
	}
	pivot := b.paths[k].ObjectID

	left := newBlock(BlockInfo{Start: b.info.Start, End: pivot, ID: allocate()})
	right := newBlock(BlockInfo{Start: pivot, End: b.info.End, ID: allocate()})
	left.adopt(b.paths[:k])
	right.adopt(b.paths[k:])

	return append(left.split(limit, allocate), right.split(limit, allocate)...)
}

// adopt takes ownership of paths, which must be sorted and in range.
func (b *Block) adopt(paths []Path) {
	b.paths = append([]Path(nil), paths...)
	for i := range b.paths {
		b.size += b.paths[i].size()
	}
}

// payload encodes the uncompressed block body.
func (b *Block) payload() []byte {
	buf := make([]byte, 0, b.size)
	buf = binary.LittleEndian.AppendUint64(buf, b.info.Start)
	buf = binary.LittleEndian.AppendUint64(buf, b.info.End)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b.paths)))
	for i := range b.paths {
		p := &b.paths[i]
		buf = binary.LittleEndian.AppendUint64(buf, p.ObjectID)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Events)))
		for j := range p.Events {
			buf = p.Events[j].appendTo(buf)
		}
	}
	return buf
}

// encode returns the complete block file.
func (b *Block) encode(alg int, compressed bool) []byte {
	body := b.payload()
	var flags byte
	if compressed {
		body = compress(body)
		flags |= blockFlagCompress
	}
	buf := make([]byte, 0, 1+len(body)+8)
	buf = append(buf, flags)
	buf = append(buf, body...)
	return binary.LittleEndian.AppendUint64(buf, checksum(buf, alg))
}

// decodeBlock parses a block file and checks it against the header entry
// that points to it.
func decodeBlock(data []byte, info BlockInfo, alg int) (*Block, error) {
	if len(data) < 1+8 {
		return nil, fmt.Errorf("%w: block %d: %d bytes", ErrCorruptFormat, info.ID, len(data))
	}
	stored := data[:len(data)-8]
	if sum := binary.LittleEndian.Uint64(data[len(data)-8:]); sum != checksum(stored, alg) {
		return nil, fmt.Errorf("%w: block %d", ErrChecksum, info.ID)
	}

	body := stored[1:]
	if stored[0]&blockFlagCompress != 0 {
		var err error
		if body, err = decompress(body); err != nil {
			return nil, fmt.Errorf("block %d: %w", info.ID, err)
		}
	}

	d := &decoder{buf: body}
	start, end := d.u64(), d.u64()
	count := d.u32()
	if d.err != nil {
		return nil, d.err
	}
	if start != info.Start || end != info.End {
		return nil, fmt.Errorf("%w: block %d holds [%d, %d), header says [%d, %d)",
			ErrCorruptState, info.ID, start, end, info.Start, info.End)
	}

	b := newBlock(info)
	for i := uint32(0); i < count && d.err == nil; i++ {
		p := Path{ObjectID: d.u64()}
		n := d.u32()
		if d.err != nil {
			break
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: block %d: empty path for object %d", ErrCorruptFormat, info.ID, p.ObjectID)
		}
		if !info.Contains(p.ObjectID) {
			return nil, fmt.Errorf("%w: block %d: object %d out of range", ErrCorruptFormat, info.ID, p.ObjectID)
		}
		if len(b.paths) > 0 && b.paths[len(b.paths)-1].ObjectID >= p.ObjectID {
			return nil, fmt.Errorf("%w: block %d: paths out of order at object %d", ErrCorruptFormat, info.ID, p.ObjectID)
		}
		for j := uint32(0); j < n && d.err == nil; j++ {
			e := d.event()
			if k := len(p.Events); k > 0 && p.Events[k-1].Timestamp > e.Timestamp {
				return nil, fmt.Errorf("%w: block %d: object %d events out of order", ErrCorruptFormat, info.ID, p.ObjectID)
			}
			p.Events = append(p.Events, e)
		}
		b.paths = append(b.paths, p)
	}
	if d.err != nil {
		return nil, fmt.Errorf("block %d: %w", info.ID, d.err)
	}
	if d.off != len(body) {
		return nil, fmt.Errorf("%w: block %d: %d trailing bytes", ErrCorruptFormat, info.ID, len(body)-d.off)
	}
	b.size = len(body)
	return b, nil
}
