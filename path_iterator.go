// Full scans over an object file.
//
// PathIterator visits blocks in header order and, inside each block, paths
// in object-id order, so draining every cursor it produces yields each
// event exactly once, ordered by object id and then by time. Blocks are
// loaded as the iterator reaches them. The iterator reads the live header:
// inserting while a scan is in progress gives no ordering guarantee.
package sky

import (
	"iter"
)

// PathIterator walks every path of an object file.
type PathIterator struct {
	of    *ObjectFile
	block int
	path  int
	eof   bool
}

// NewPathIterator returns an iterator positioned before the first path.
// Call Next once to bind the first path.
func NewPathIterator(of *ObjectFile) *PathIterator {
	return &PathIterator{of: of}
}

// EOF reports whether every path has been visited.
func (it *PathIterator) EOF() bool { return it.eof }

// Next rebinds c to the next path, positioned on its first event. Reusing
// the caller's cursor keeps hot scan loops allocation-free. After the last
// path, Next sets EOF and leaves c at EOF too; calling it again returns
// ErrExhausted.
func (it *PathIterator) Next(c *Cursor) error {
	if it.eof {
		return ErrExhausted
	}
	if err := it.of.check(); err != nil {
		return err
	}

	for it.block < it.of.blockCount() {
		b, err := it.of.blockAt(it.block)
		if err != nil {
			return err
		}
		if it.path < len(b.paths) {
			c.bind(&b.paths[it.path])
			it.path++
			return nil
		}
		it.block++
		it.path = 0
	}

	it.eof = true
	c.bind(nil)
	return nil
}

// All yields every event in object-id then time order. Callers can break
// out of the range loop to stop the scan early. An error ends the sequence.
func (of *ObjectFile) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		it := NewPathIterator(of)
		c := NewCursor(nil)
		if err := it.Next(c); err != nil {
			yield(Event{}, err)
			return
		}
		for !it.EOF() {
			for !c.EOF() {
				if !yield(c.Event(), nil) {
					return
				}
				if err := c.NextEvent(); err != nil {
					yield(Event{}, err)
					return
				}
			}
			if err := it.Next(c); err != nil {
				yield(Event{}, err)
				return
			}
		}
	}
}
