package sky

import "testing"

func timestamps(p *Path) []int64 {
	ts := make([]int64, len(p.Events))
	for i, e := range p.Events {
		ts[i] = e.Timestamp
	}
	return ts
}

func TestPathInsertOrdered(t *testing.T) {
	p := &Path{ObjectID: 1}
	for _, ts := range []int64{5, 1, 3} {
		p.insert(Event{Timestamp: ts})
	}
	got := timestamps(p)
	want := []int64{1, 3, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("timestamps = %v, want %v", got, want)
		}
	}
}

func TestPathInsertStableTies(t *testing.T) {
	p := &Path{ObjectID: 1}
	p.insert(Event{Timestamp: 10, ActionID: 1})
	p.insert(Event{Timestamp: 5, ActionID: 2})
	p.insert(Event{Timestamp: 10, ActionID: 3})
	p.insert(Event{Timestamp: 10, ActionID: 4})

	want := []uint32{2, 1, 3, 4}
	for i, e := range p.Events {
		if e.ActionID != want[i] {
			t.Fatalf("action order = %v, want %v", p.Events, want)
		}
	}
}

func TestPathSize(t *testing.T) {
	p := &Path{ObjectID: 1}
	if p.size() != pathFixedSize {
		t.Errorf("empty size = %d, want %d", p.size(), pathFixedSize)
	}
	e := Event{Timestamp: 1, Properties: []Property{
		{ID: 1, Value: String("abc")},
		{ID: 2, Value: Int(7)},
		{ID: 3, Value: Bool(true)},
	}}
	p.insert(e)
	want := pathFixedSize + eventFixedSize + (4 + 1 + 4 + 3) + (4 + 1 + 8) + (4 + 1 + 1)
	if p.size() != want {
		t.Errorf("size = %d, want %d", p.size(), want)
	}
}
