package sky

import (
	"errors"
	"testing"
)

func TestCursorDrain(t *testing.T) {
	p := &Path{ObjectID: 9}
	for _, ts := range []int64{3, 1, 2} {
		p.insert(Event{Timestamp: ts})
	}

	c := NewCursor(p)
	var got []int64
	for !c.EOF() {
		e := c.Event()
		if e.ObjectID != 9 {
			t.Errorf("ObjectID = %d, want 9", e.ObjectID)
		}
		got = append(got, e.Timestamp)
		if err := c.NextEvent(); err != nil {
			t.Fatalf("NextEvent: %v", err)
		}
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("timestamps = %v", got)
	}
	if err := c.NextEvent(); !errors.Is(err, ErrExhausted) {
		t.Errorf("NextEvent at EOF err = %v, want ErrExhausted", err)
	}
	if e := c.Event(); e.Timestamp != 0 || e.ObjectID != 0 {
		t.Errorf("Event at EOF = %+v, want zero", e)
	}
}

func TestCursorEmpty(t *testing.T) {
	for _, p := range []*Path{nil, {ObjectID: 1}} {
		c := NewCursor(p)
		if !c.EOF() {
			t.Errorf("cursor on %v not at EOF", p)
		}
	}
}

func TestPathIteratorEmptyObjectFile(t *testing.T) {
	of := openTestObjectFile(t, Config{})
	it := NewPathIterator(of)
	c := NewCursor(nil)
	if err := it.Next(c); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !it.EOF() || !c.EOF() {
		t.Error("iterator over empty object file not at EOF")
	}
	if err := it.Next(c); !errors.Is(err, ErrExhausted) {
		t.Errorf("Next after EOF err = %v, want ErrExhausted", err)
	}
}

func TestPathIteratorReusesCursor(t *testing.T) {
	of := openTestObjectFile(t, Config{})
	addEvents(t, of,
		Event{ObjectID: 2, Timestamp: 1},
		Event{ObjectID: 1, Timestamp: 1},
		Event{ObjectID: 1, Timestamp: 2},
	)

	it := NewPathIterator(of)
	c := NewCursor(nil)
	counts := map[uint64]int{}
	for err := it.Next(c); !it.EOF(); err = it.Next(c) {
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		for ; !c.EOF(); c.NextEvent() {
			counts[c.ObjectID()]++
		}
	}
	if counts[1] != 2 || counts[2] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
