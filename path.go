package sky

import "sort"

// pathFixedSize covers object id and event count.
const pathFixedSize = 8 + 4

// Path is the event history of one object, ordered by timestamp. Events
// with equal timestamps keep their insertion order.
type Path struct {
	ObjectID uint64
	Events   []Event
}

// insert places e after every event with a timestamp not greater than its
// own, so out-of-order arrivals land in time order and ties stay stable.
func (p *Path) insert(e Event) {
	i := sort.Search(len(p.Events), func(i int) bool {
		return p.Events[i].Timestamp > e.Timestamp
	})
	e.ObjectID = 0
	p.Events = append(p.Events, Event{})
	copy(p.Events[i+1:], p.Events[i:])
	p.Events[i] = e
}

// size returns the encoded size of p in a block payload.
func (p *Path) size() int {
	n := pathFixedSize
	for i := range p.Events {
		n += p.Events[i].size()
	}
	return n
}
