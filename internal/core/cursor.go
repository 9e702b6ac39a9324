package core

import "strconv"

// Cursor is the highest action id delivered to a connection for one room.
//
// A room missing from ClientState.Cursors was never fetched. A present
// cursor is either NoActions (fetched, the room had nothing yet) or holds
// the id of the newest delivered action.
type Cursor struct {
	id    int64
	valid bool
}

// NoActions is the cursor of a tracked room that had no actions when fetched.
func NoActions() Cursor {
	return Cursor{}
}

// CursorAt returns a cursor positioned at id.
func CursorAt(id int64) Cursor {
	return Cursor{id: id, valid: true}
}

// ID returns the action id and whether there is one.
func (c Cursor) ID() (int64, bool) {
	return c.id, c.valid
}

// After is the exclusive lower bound for the next fetch.
// Store ids start at 1, so 0 selects every action.
func (c Cursor) After() int64 {
	if !c.valid {
		return 0
	}
	return c.id
}

// Advance moves the cursor to id unless it is already at or past it.
func (c Cursor) Advance(id int64) Cursor {
	if c.valid && id <= c.id {
		return c
	}
	return CursorAt(id)
}

func (c Cursor) String() string {
	if !c.valid {
		return "none"
	}
	return strconv.FormatInt(c.id, 10)
}
