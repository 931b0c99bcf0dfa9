// Events and their property values.
//
// An Event is one occurrence for an object: a timestamp, an action id (0 for
// none) and an ordered list of property values. Action and property ids come
// from the object file's dictionaries; the event itself stores only ids.
package sky

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ValueKind identifies the type held by a Value.
type ValueKind uint8

const (
	KindString ValueKind = iota + 1
	KindInt
	KindFloat
	KindBool
)

// Value is a typed property value.
type Value struct {
	kind ValueKind
	str  string
	num  uint64 // int64, float64 bits or bool
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, num: uint64(i)} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, num: math.Float64bits(f)} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Kind returns the value's type.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string held by a KindString value.
func (v Value) Str() string { return v.str }

// Int returns the integer held by a KindInt value.
func (v Value) Int() int64 { return int64(v.num) }

// Float returns the number held by a KindFloat value.
func (v Value) Float() float64 { return math.Float64frombits(v.num) }

// Bool returns the flag held by a KindBool value.
func (v Value) Bool() bool { return v.num != 0 }

// Any returns the value as a Go value, or nil for an unset Value.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.Int()
	case KindFloat:
		return v.Float()
	case KindBool:
		return v.Bool()
	}
	return nil
}

func (v Value) size() int {
	switch v.kind {
	case KindString:
		return 1 + 4 + len(v.str)
	case KindBool:
		return 1 + 1
	default:
		return 1 + 8
	}
}

// Property is one (property id, value) pair of an event.
type Property struct {
	ID    uint32
	Value Value
}

// Event is one timestamped occurrence. ObjectID is filled in by Cursor and
// is not stored per event: the owning path carries it.
type Event struct {
	ObjectID   uint64
	Timestamp  int64
	ActionID   uint32
	Properties []Property
}

// eventFixedSize covers timestamp, action id and property count.
const eventFixedSize = 8 + 4 + 2

// size returns the encoded size of e in a block payload.
func (e *Event) size() int {
	n := eventFixedSize
	for _, p := range e.Properties {
		n += 4 + p.Value.size()
	}
	return n
}

func (e *Event) validate() error {
	if len(e.Properties) > math.MaxUint16 {
		return fmt.Errorf("%w: %d properties on one event", ErrCorruptFormat, len(e.Properties))
	}
	for _, p := range e.Properties {
		switch p.Value.kind {
		case KindString:
			if uint64(len(p.Value.str)) > math.MaxUint32 {
				return fmt.Errorf("%w: property %d value too long", ErrCorruptFormat, p.ID)
			}
		case KindInt, KindFloat, KindBool:
		default:
			return fmt.Errorf("%w: property %d has no value", ErrCorruptFormat, p.ID)
		}
	}
	return nil
}

func (e *Event) appendTo(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Timestamp))
	buf = binary.LittleEndian.AppendUint32(buf, e.ActionID)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Properties)))
	for _, p := range e.Properties {
		buf = binary.LittleEndian.AppendUint32(buf, p.ID)
		buf = append(buf, byte(p.Value.kind))
		switch p.Value.kind {
		case KindString:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Value.str)))
			buf = append(buf, p.Value.str...)
		case KindBool:
			buf = append(buf, byte(p.Value.num))
		default:
			buf = binary.LittleEndian.AppendUint64(buf, p.Value.num)
		}
	}
	return buf
}

// decoder reads little-endian fields from a block payload and remembers
// the first short read.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.err = fmt.Errorf("%w: block truncated at offset %d", ErrCorruptFormat, d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) event() Event {
	e := Event{
		Timestamp: int64(d.u64()),
		ActionID:  d.u32(),
	}
	n := int(d.u16())
	if n > 0 && d.err == nil {
		e.Properties = make([]Property, 0, n)
	}
	for i := 0; i < n && d.err == nil; i++ {
		p := Property{ID: d.u32()}
		switch kind := ValueKind(d.u8()); kind {
		case KindString:
			p.Value = String(string(d.take(int(d.u32()))))
		case KindInt:
			p.Value = Int(int64(d.u64()))
		case KindFloat:
			p.Value = Value{kind: KindFloat, num: d.u64()}
		case KindBool:
			p.Value = Bool(d.u8() != 0)
		default:
			if d.err == nil {
				d.err = fmt.Errorf("%w: unknown value kind %d", ErrCorruptFormat, kind)
			}
		}
		e.Properties = append(e.Properties, p)
	}
	return e
}
