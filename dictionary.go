// Action and property dictionaries.
//
// A dictionary is an append-only name<->id registry. On disk it is a u32
// count followed by count records of {u32 id, u16 name length, name bytes},
// little-endian, names not null-terminated. Ids are allocated sequentially
// from 1 and never reused. Id 0 is reserved to mean "none" in both the
// action and the property dictionary.
package sky

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
)

// Dictionary kinds, which are also the backing file names.
const (
	KindActions    = "actions"
	KindProperties = "properties"
)

// Entry is one dictionary record.
type Entry struct {
	ID   uint32
	Name string
}

// Dictionary maps names to ids for one namespace of an object file.
type Dictionary struct {
	kind    string
	path    string
	entries []Entry // sorted by ID
	byName  map[string]uint32
	byID    map[uint32]string
	maxID   uint32
	dirty   bool
}

func newDictionary(kind, path string) *Dictionary {
	return &Dictionary{
		kind:   kind,
		path:   path,
		byName: make(map[string]uint32),
		byID:   make(map[uint32]string),
	}
}

// Kind returns "actions" or "properties".
func (d *Dictionary) Kind() string { return d.kind }

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }

// Dirty reports whether entries were created since the last load or persist.
func (d *Dictionary) Dirty() bool { return d.dirty }

// Lookup returns the id for name.
func (d *Dictionary) Lookup(name string) (uint32, bool) {
	id, ok := d.byName[name]
	return id, ok
}

// Name returns the name registered under id.
func (d *Dictionary) Name(id uint32) (string, bool) {
	name, ok := d.byID[id]
	return name, ok
}

// Entries returns a copy of all entries ordered by id.
func (d *Dictionary) Entries() []Entry {
	return slices.Clone(d.entries)
}

// FindOrCreate returns the id for name, allocating the next id if the name
// is new. New entries live in memory until persist.
func (d *Dictionary) FindOrCreate(name string) (uint32, error) {
	if id, ok := d.byName[name]; ok {
		return id, nil
	}
	if name == "" || len(name) > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %s name of %d bytes", ErrInvalidName, d.kind, len(name))
	}
	if d.maxID == math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s dictionary is full", ErrCorruptState, d.kind)
	}
	id := d.maxID + 1
	d.add(Entry{ID: id, Name: name})
	d.dirty = true
	return id, nil
}

func (d *Dictionary) add(e Entry) {
	d.entries = append(d.entries, e)
	d.byName[e.Name] = e.ID
	d.byID[e.ID] = e.Name
	if e.ID > d.maxID {
		d.maxID = e.ID
	}
}

// load replaces the in-memory entries with the backing file's contents. A
// missing file is an empty dictionary, not an error.
func (d *Dictionary) load() error {
	f, err := os.Open(d.path)
	if os.IsNotExist(err) {
		d.reset()
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, d.kind, err)
	}
	defer f.Close()

	entries, err := readEntries(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", d.kind, err)
	}

	next := newDictionary(d.kind, d.path)
	for _, e := range entries {
		if _, dup := next.byID[e.ID]; dup {
			return fmt.Errorf("%w: %s: duplicate id %d", ErrCorruptFormat, d.kind, e.ID)
		}
		if _, dup := next.byName[e.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate name %q", ErrCorruptFormat, d.kind, e.Name)
		}
		next.add(e)
	}
	slices.SortFunc(next.entries, func(a, b Entry) int {
		return cmp.Compare(a.ID, b.ID)
	})
	*d = *next
	return nil
}

func (d *Dictionary) reset() {
	d.entries = nil
	clear(d.byName)
	clear(d.byID)
	d.maxID = 0
	d.dirty = false
}

// readEntries decodes the dictionary file format. Every name must be read
// in full: a record cut short by EOF is ErrCorruptFormat.
func readEntries(r io.Reader) ([]Entry, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, corrupt("count", err)
	}

	entries := make([]Entry, 0, min(count, 1024))
	var rec [6]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, corrupt(fmt.Sprintf("record %d header", i), err)
		}
		id := binary.LittleEndian.Uint32(rec[:4])
		length := binary.LittleEndian.Uint16(rec[4:])
		name := make([]byte, length)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, corrupt(fmt.Sprintf("record %d name (%d bytes)", i, length), err)
		}
		entries = append(entries, Entry{ID: id, Name: string(name)})
	}
	return entries, nil
}

// corrupt classifies a read failure: running out of bytes means the file is
// malformed, anything else is an I/O error.
func corrupt(what string, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: truncated %s", ErrCorruptFormat, what)
	}
	return fmt.Errorf("%w: read %s: %w", ErrIO, what, err)
}

// encode serialises the dictionary in id order.
func (d *Dictionary) encode() []byte {
	size := 4
	for _, e := range d.entries {
		size += 6 + len(e.Name)
	}
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(d.entries)))
	for _, e := range d.entries {
		buf = binary.LittleEndian.AppendUint32(buf, e.ID)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Name)))
		buf = append(buf, e.Name...)
	}
	return buf
}

// persist writes the dictionary through a temp file and rename.
func (d *Dictionary) persist(sync bool) error {
	if err := writeFile(d.path, d.encode(), sync); err != nil {
		return fmt.Errorf("persist %s: %w", d.kind, err)
	}
	d.dirty = false
	return nil
}
