package xmlcursor

// Children is a lazy, single-pass iterator over the child elements
// of one Cursor. It is created by the All and Multiple methods and
// follows the Next/Value/Err pull-iterator convention: structural
// errors encountered while looking ahead end the iteration and are
// reported by Err instead of being lost.
//
//	for it := parent.Multiple("item"); it.Next(); {
//		item := it.Value()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Children struct {
	parent *Cursor
	cur    *Cursor
	err    error
	wanted string
	anyKid bool
	done   bool
}

// All returns an iterator enumerating every remaining child of this
// Cursor, in document order.
func (thiz *Cursor) All() *Children {
	return &Children{parent: thiz, anyKid: true}
}

// Multiple returns an iterator enumerating the children with the
// given local name immediately following the current position. It
// is perfectly legal if there is no such child. The iterator stops
// at the first differently-named sibling, which is pushed back and
// remains available to the parent Cursor.
func (thiz *Cursor) Multiple(localName string) *Children {
	return &Children{parent: thiz, wanted: localName}
}

// Next advances to the next child and reports whether one is
// available. Once it has returned false it keeps returning false.
func (thiz *Children) Next() bool {
	if thiz.done || thiz.err != nil {
		return false
	}
	var ret *Cursor
	var err error
	if thiz.anyKid {
		ret, err = thiz.parent.Any()
	} else {
		ret, err = thiz.parent.Optional(thiz.wanted)
	}
	if err != nil {
		thiz.err = err
		thiz.done = true
		return false
	}
	if ret == nil {
		thiz.done = true
		return false
	}
	thiz.cur = ret
	return true
}

// Value returns the child Cursor produced by the last successful
// call to Next.
func (thiz *Children) Value() *Cursor {
	return thiz.cur
}

// Err returns the error that ended the iteration, if any.
func (thiz *Children) Err() error {
	return thiz.err
}
