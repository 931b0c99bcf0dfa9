// Header index for an object file.
//
// The header maps disjoint object-id ranges to block files. On disk it is a
// u32 count followed by count fixed-size entries of {u64 start, u64 end,
// u32 block id}, little-endian. The stored order is not trusted: entries are
// sorted by start on load and then checked for overlap, so lookups can use
// binary search.
package sky

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const (
	headerFile      = "header"
	headerEntrySize = 20
)

// BlockInfo describes one block: the half-open object-id range [Start, End)
// it owns and the id that locates its file.
type BlockInfo struct {
	Start uint64
	End   uint64
	ID    uint32
}

// Contains reports whether objectID falls inside the block's range.
func (b BlockInfo) Contains(objectID uint64) bool {
	return objectID >= b.Start && objectID < b.End
}

// filename returns the block file name for b.
func (b BlockInfo) filename() string {
	return blockFilename(b.ID)
}

// headerIndex is the in-memory header: entries sorted by Start.
type headerIndex struct {
	infos  []BlockInfo
	nextID uint32
	dirty  bool
}

// loadHeader reads dir/header. A missing file yields an empty index.
func loadHeader(dir string) (*headerIndex, error) {
	h := &headerIndex{}
	data, err := os.ReadFile(filepath.Join(dir, headerFile))
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrIO, err)
	}
	if err := h.decode(data); err != nil {
		return nil, err
	}
	return h, nil
}

// decode parses the header file body, sorts the entries and validates them.
func (h *headerIndex) decode(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: header: missing count", ErrCorruptFormat)
	}
	count := binary.LittleEndian.Uint32(data)
	body := data[4:]
	if uint64(len(body)) != uint64(count)*headerEntrySize {
		return fmt.Errorf("%w: header: %d entries declared, %d bytes present", ErrCorruptFormat, count, len(body))
	}

	infos := make([]BlockInfo, count)
	for i := range infos {
		e := body[i*headerEntrySize:]
		infos[i] = BlockInfo{
			Start: binary.LittleEndian.Uint64(e),
			End:   binary.LittleEndian.Uint64(e[8:]),
			ID:    binary.LittleEndian.Uint32(e[16:]),
		}
	}
	slices.SortFunc(infos, func(a, b BlockInfo) int {
		return cmp.Compare(a.Start, b.Start)
	})
	if err := validate(infos); err != nil {
		return err
	}

	h.infos = infos
	h.nextID = 0
	for _, info := range infos {
		if info.ID >= h.nextID {
			h.nextID = info.ID + 1
		}
	}
	h.dirty = false
	return nil
}

// validate checks that sorted entries are non-empty, disjoint and use
// distinct block ids.
func validate(infos []BlockInfo) error {
	ids := make(map[uint32]struct{}, len(infos))
	for i, info := range infos {
		if info.Start >= info.End {
			return fmt.Errorf("%w: empty range [%d, %d)", ErrCorruptState, info.Start, info.End)
		}
		if i > 0 && infos[i-1].End > info.Start {
			return fmt.Errorf("%w: range [%d, %d) overlaps [%d, %d)",
				ErrCorruptState, infos[i-1].Start, infos[i-1].End, info.Start, info.End)
		}
		if _, dup := ids[info.ID]; dup {
			return fmt.Errorf("%w: block id %d used twice", ErrCorruptState, info.ID)
		}
		ids[info.ID] = struct{}{}
	}
	return nil
}

// encode serialises the index in sorted order.
func (h *headerIndex) encode() []byte {
	buf := make([]byte, 4+len(h.infos)*headerEntrySize)
	binary.LittleEndian.PutUint32(buf, uint32(len(h.infos)))
	for i, info := range h.infos {
		e := buf[4+i*headerEntrySize:]
		binary.LittleEndian.PutUint64(e, info.Start)
		binary.LittleEndian.PutUint64(e[8:], info.End)
		binary.LittleEndian.PutUint32(e[16:], info.ID)
	}
	return buf
}

// persist writes the index to dir/header through a temp file and rename.
func (h *headerIndex) persist(dir string, sync bool) error {
	if err := writeFile(filepath.Join(dir, headerFile), h.encode(), sync); err != nil {
		return fmt.Errorf("persist header: %w", err)
	}
	h.dirty = false
	return nil
}

// search returns the position of the first entry whose End is above
// objectID. That entry contains objectID if its Start is not above it.
func (h *headerIndex) search(objectID uint64) int {
	i, _ := slices.BinarySearchFunc(h.infos, objectID, func(info BlockInfo, id uint64) int {
		if info.End <= id {
			return -1
		}
		return 1
	})
	return i
}

// find returns the entry containing objectID.
func (h *headerIndex) find(objectID uint64) (BlockInfo, bool) {
	i := h.search(objectID)
	if i < len(h.infos) && h.infos[i].Contains(objectID) {
		return h.infos[i], true
	}
	return BlockInfo{}, false
}

// window returns the range a new block for objectID should own: the
// width-aligned window around it, clipped to the gap between its
// neighbours.
func (h *headerIndex) window(objectID, width uint64) (uint64, uint64) {
	start := objectID - objectID%width
	end := start + width
	if end < start { // overflow at the top of the id space
		end = ^uint64(0)
	}

	i := h.search(objectID)
	if i > 0 && h.infos[i-1].End > start {
		start = h.infos[i-1].End
	}
	if i < len(h.infos) && h.infos[i].Start < end {
		end = h.infos[i].Start
	}
	return start, end
}

// headerSnapshot is the part of the index an insert may change.
type headerSnapshot struct {
	infos []BlockInfo
	dirty bool
}

// snapshot captures the current entries. Block ids already allocated are
// not part of it: ids are never reused.
func (h *headerIndex) snapshot() headerSnapshot {
	return headerSnapshot{infos: slices.Clone(h.infos), dirty: h.dirty}
}

// restore resets the entries to s.
func (h *headerIndex) restore(s headerSnapshot) {
	h.infos = s.infos
	h.dirty = s.dirty
}

// has reports whether info is an entry of the index.
func (h *headerIndex) has(info BlockInfo) bool {
	got, ok := h.find(info.Start)
	return ok && got == info
}

// allocate reserves a fresh block id.
func (h *headerIndex) allocate() uint32 {
	id := h.nextID
	h.nextID++
	return id
}

// insert adds a new entry in sorted position. The range must not overlap
// any existing entry.
func (h *headerIndex) insert(info BlockInfo) error {
	return h.replace(nil, []BlockInfo{info})
}

// replace swaps the entry for old (nil for a pure insert) with children,
// which must be sorted and disjoint. An overlap with any remaining entry is
// ErrCorruptState and leaves the index unchanged.
func (h *headerIndex) replace(old *BlockInfo, children []BlockInfo) error {
	next := make([]BlockInfo, 0, len(h.infos)+len(children))
	for _, info := range h.infos {
		if old != nil && info == *old {
			old = nil
			continue
		}
		next = append(next, info)
	}
	if old != nil {
		return fmt.Errorf("%w: block %d [%d, %d) missing from header", ErrCorruptState, old.ID, old.Start, old.End)
	}
	next = append(next, children...)
	slices.SortFunc(next, func(a, b BlockInfo) int {
		return cmp.Compare(a.Start, b.Start)
	})
	if err := validate(next); err != nil {
		return err
	}
	h.infos = next
	h.dirty = true
	return nil
}
