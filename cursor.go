package sky

// Cursor reads the events of one path in time order. It starts on the
// first event; EOF is true once it has moved past the last one. A cursor
// only moves forward: create another, or let a PathIterator rebind it, to
// read a path again.
type Cursor struct {
	path  *Path
	index int
	eof   bool
}

// NewCursor returns a cursor on the first event of p. A nil or empty path
// gives a cursor that is already at EOF.
func NewCursor(p *Path) *Cursor {
	c := &Cursor{}
	c.bind(p)
	return c
}

func (c *Cursor) bind(p *Path) {
	c.path = p
	c.index = 0
	c.eof = p == nil || len(p.Events) == 0
}

// EOF reports whether every event of the path has been read.
func (c *Cursor) EOF() bool { return c.eof }

// ObjectID returns the id of the object whose path is bound, or 0.
func (c *Cursor) ObjectID() uint64 {
	if c.path == nil {
		return 0
	}
	return c.path.ObjectID
}

// Event returns the current event with its ObjectID set, or the zero Event
// at EOF. The Properties slice is shared with the store and must not be
// modified.
func (c *Cursor) Event() Event {
	if c.eof {
		return Event{}
	}
	e := c.path.Events[c.index]
	e.ObjectID = c.path.ObjectID
	return e
}

// NextEvent moves to the following event. Calling it at EOF returns
// ErrExhausted, so check EOF first.
func (c *Cursor) NextEvent() error {
	if c.eof {
		return ErrExhausted
	}
	c.index++
	c.eof = c.index >= len(c.path.Events)
	return nil
}
