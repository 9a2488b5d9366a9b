package xmlcursor

import (
	"io"
	"strconv"
	"strings"
	"time"
)

// dateFormat is the calendar date layout used by Date, DateOr
// and DateAttr.
const dateFormat = "2006-01-02"

// Cursor represents an XML element and is used to iterate through
// its child elements. Iterating is performed by the Any, Optional,
// Required, SkipTo, All and Multiple methods.
//
// Each Cursor remembers its local name and all of its attributes
// even while iterating through child elements and after the element
// has been fully consumed. The object handed out for a child may
// however be reused when the next sibling is read from the stream
// and is then useless for the previous element.
//
// The whole tree of Cursors descended from one root shares a single
// Decoder. Its position only ever moves forward, so a parent cannot
// advance past a child's content without the child having been
// consumed; Any transparently finishes a still-open child before
// pulling the next sibling.
type Cursor struct {
	base      Decoder
	closer    io.Closer
	tok       *Token
	child     *Cursor
	spare     *Cursor
	attrs     []cursorAttr
	localName string
	systemID  string
	pushBack  bool
}

// cursorAttr is an element attribute captured at the moment the
// element's start tag was consumed. Values are stored as strings
// because the Decoder reuses its buffers.
type cursorAttr struct {
	name  string
	value string
}

// NewCursor creates a root Cursor reading the XML document from r.
// The returned Cursor represents the document as a whole and points
// to nothing; the document element is obtained with Required or Any.
// systemID may be empty and is only used for diagnostics.
// If r is an io.Closer, Close will close it.
func NewCursor(r io.Reader, systemID string) *Cursor {
	thiz := NewDecoderCursor(NewDecoder(r))
	thiz.systemID = systemID
	if c, ok := r.(io.Closer); ok {
		thiz.closer = c
	}
	return thiz
}

// NewDecoderCursor creates a root Cursor pulling tokens from d.
func NewDecoderCursor(d Decoder) *Cursor {
	return &Cursor{
		base: d,
		tok:  &Token{},
	}
}

func newChildCursor(parent *Cursor) *Cursor {
	thiz := &Cursor{}
	thiz.init(parent)
	return thiz
}

// init rebinds thiz as a child of parent, capturing the name and
// attributes of the start element the shared Decoder just produced.
func (thiz *Cursor) init(parent *Cursor) *Cursor {
	thiz.pushBack = false
	thiz.base = parent.base
	thiz.child = nil
	thiz.tok = parent.tok
	thiz.systemID = parent.systemID
	thiz.saveValues()
	return thiz
}

func (thiz *Cursor) saveValues() {
	t := thiz.tok
	thiz.localName = string(t.Name.Local)
	thiz.attrs = thiz.attrs[:0]
	for i := range t.Attr {
		thiz.attrs = append(thiz.attrs, cursorAttr{
			name:  string(t.Attr[i].Name.Local),
			value: unescape(string(t.Attr[i].Value)),
		})
	}
}

// LocalName returns the local name of the element represented by
// this Cursor.
func (thiz *Cursor) LocalName() string {
	return thiz.localName
}

// SystemID returns the system identifier the root Cursor was
// created with, or the empty string.
func (thiz *Cursor) SystemID() string {
	return thiz.systemID
}

// Location returns the current parse position of the shared
// Decoder. Note that the position is only valid immediately after
// this Cursor was produced, because the Decoder is common to all
// parent and child Cursors and advances with most calls on any of
// them. An unbound Cursor reports the zero Location.
func (thiz *Cursor) Location() Location {
	if thiz.base == nil {
		return Location{}
	}
	return thiz.base.Location()
}

// Close closes the underlying input stream, if the root Cursor was
// created from an io.Closer. It does not consume remaining content;
// use Finish for that.
func (thiz *Cursor) Close() error {
	if thiz.closer != nil {
		return thiz.closer.Close()
	}
	return nil
}

func (thiz *Cursor) next() (byte, error) {
	err := thiz.base.NextToken(thiz.tok)
	if err != nil {
		return 0, err
	}
	return thiz.tok.Kind, nil
}

// skipNoise pulls tokens until the next structural event, skipping
// whitespace, character data, comments, processing instructions and
// directives. The returned kind is TokenTypeStartElement or
// TokenTypeEndElement.
func (thiz *Cursor) skipNoise() (byte, error) {
	for {
		kind, err := thiz.next()
		if err != nil {
			return 0, err
		}
		switch kind {
		case TokenTypeStartElement, TokenTypeEndElement:
			return kind, nil
		}
	}
}

// Any returns the next child element, or nil if there is no more
// child. A still-open previous child is finished first because the
// shared Decoder cannot advance to the next sibling otherwise.
// Once nil has been returned, the Cursor is unbound and every
// further Any returns nil as well.
func (thiz *Cursor) Any() (*Cursor, error) {
	if thiz.base == nil {
		return nil, nil
	}
	if thiz.pushBack {
		thiz.pushBack = false
		return thiz.child, nil
	}
	if thiz.child != nil && thiz.child.base != nil {
		err := thiz.child.Finish()
		if err != nil {
			return nil, err
		}
	}
	kind, err := thiz.skipNoise()
	if err == io.EOF {
		// end of document
		thiz.base = nil
		thiz.child = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if kind == TokenTypeEndElement {
		thiz.base = nil
		thiz.child = nil
		return nil, nil
	}
	if thiz.spare != nil {
		thiz.child = thiz.spare.init(thiz)
	} else {
		thiz.child = newChildCursor(thiz)
	}
	thiz.spare = thiz.child
	return thiz.child, nil
}

// Optional advances to the next child element and returns a Cursor
// for it iff that element has the given local name. If the next
// child has another name, it is pushed back: this Cursor still
// points to the same position and the very same child is produced
// again by the next Any, Optional or Required call. If there is no
// child at all, nil is returned.
// localName may be empty to accept any child.
func (thiz *Cursor) Optional(localName string) (*Cursor, error) {
	ret, err := thiz.Any()
	if err != nil || ret == nil {
		return ret, err
	}
	if localName == "" || localName == ret.localName {
		return ret, nil
	}
	thiz.pushBack = true
	return nil, nil
}

// Required returns the next child element, which must have the
// given local name. It returns a NoMoreElementsError if there is no
// further child and an UnexpectedElementError if the child is named
// differently.
func (thiz *Cursor) Required(localName string) (*Cursor, error) {
	base := thiz.base
	ret, err := thiz.Any()
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, NoMoreElementsError{Location: locationOf(base)}
	}
	if ret.localName != localName {
		return nil, UnexpectedElementError{
			Expected: localName,
			Found:    ret.localName,
			Location: locationOf(base),
		}
	}
	return ret, nil
}

// SkipTo skips children until one with the given local name is
// found. Unlike Optional, the skipped children are consumed and
// cannot be revisited. It returns a NoMoreElementsError if no such
// child remains.
func (thiz *Cursor) SkipTo(localName string) (*Cursor, error) {
	base := thiz.base
	for {
		ret, err := thiz.Any()
		if err != nil {
			return nil, err
		}
		if ret == nil {
			return nil, NoMoreElementsError{Location: locationOf(base)}
		}
		if ret.localName == localName {
			return ret, nil
		}
	}
}

// Finish advances to the end of the element pointed to by this
// Cursor, consuming any unread content including nested elements.
// Children started with Any, Optional or Required are finished as
// well; their saved names and attributes remain readable.
func (thiz *Cursor) Finish() error {
	if thiz.base == nil {
		return nil
	}
	if thiz.child != nil && thiz.child.base != nil {
		err := thiz.child.Finish()
		if err != nil {
			return err
		}
	}
	for level := 0; level >= 0; {
		kind, err := thiz.next()
		if err == io.EOF {
			return parseErrorf(thiz.base.Location(), "unexpected end of document")
		}
		if err != nil {
			return err
		}
		if kind == TokenTypeStartElement {
			level++
		} else if kind == TokenTypeEndElement {
			level--
		}
	}
	thiz.base = nil
	return nil
}

// Done tells this Cursor that no more child elements are expected
// and consumes the element's end tag. If some unread child remains,
// a ParseError is returned.
func (thiz *Cursor) Done() error {
	if thiz.base == nil {
		return nil
	}
	loc := thiz.base.Location()
	kind, err := thiz.skipNoise()
	if err != nil && err != io.EOF {
		return err
	}
	if err == nil && kind != TokenTypeEndElement {
		return parseErrorf(loc, "end element expected but found %s", kindName(kind))
	}
	thiz.base = nil
	thiz.child = nil
	return nil
}

// GetText returns the text contained in this element. The element
// must not contain anything besides character data; nested elements
// or mixed content produce a ParseError. The Cursor is unbound
// afterwards.
func (thiz *Cursor) GetText() (string, error) {
	if thiz.base == nil {
		return "", parseErrorf(Location{}, "element already consumed")
	}
	var ret strings.Builder
	for {
		kind, err := thiz.next()
		if err == io.EOF {
			return "", parseErrorf(thiz.base.Location(), "unexpected end of document")
		}
		if err != nil {
			return "", err
		}
		switch kind {
		case TokenTypeCharData, TokenTypeWhitespace:
			ret.WriteString(unescape(string(thiz.tok.ByteData)))
		case TokenTypeCDATA:
			// CDATA is literal, entity references in it stay as-is
			ret.Write(thiz.tok.ByteData)
		case TokenTypeEndElement:
			thiz.base = nil
			thiz.child = nil
			return ret.String(), nil
		default:
			return "", parseErrorf(thiz.base.Location(), "mixed content is not supported, found %s", kindName(kind))
		}
	}
}

// AttributeValue searches for an attribute with the given local
// name in the element represented by this Cursor. It may be called
// even after child elements have been traversed, since all
// attributes are remembered. If the same attribute name occurs more
// than once, the first occurrence wins.
func (thiz *Cursor) AttributeValue(localName string) (string, bool) {
	for i := range thiz.attrs {
		if thiz.attrs[i].name == localName {
			return thiz.attrs[i].value, true
		}
	}
	return "", false
}

// Bool returns the value of the named attribute, which must be
// exactly "true" or "false". A missing or malformed attribute
// produces an IllegalValueError.
func (thiz *Cursor) Bool(localName string) (bool, error) {
	value, _ := thiz.AttributeValue(localName)
	return thiz.parseBool(value)
}

// BoolOr returns the value of the named attribute, or ifNot when
// the attribute is absent. A present but malformed value still
// produces an IllegalValueError.
func (thiz *Cursor) BoolOr(localName string, ifNot bool) (bool, error) {
	value, ok := thiz.AttributeValue(localName)
	if !ok {
		return ifNot, nil
	}
	return thiz.parseBool(value)
}

func (thiz *Cursor) parseBool(value string) (bool, error) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, IllegalValueError{Value: value, DestType: "boolean", Location: thiz.Location()}
}

// Int returns the value of the named attribute parsed as a base-10
// int. A missing attribute is reported like a malformed one, as an
// IllegalValueError with an empty Value.
func (thiz *Cursor) Int(localName string) (int, error) {
	value, _ := thiz.AttributeValue(localName)
	ret, err := strconv.Atoi(value)
	if err != nil {
		return 0, IllegalValueError{Value: value, DestType: "int", Location: thiz.Location()}
	}
	return ret, nil
}

// IntOr returns the value of the named attribute parsed as a
// base-10 int, or ifNot when the attribute is absent.
func (thiz *Cursor) IntOr(localName string, ifNot int) (int, error) {
	value, ok := thiz.AttributeValue(localName)
	if !ok {
		return ifNot, nil
	}
	ret, err := strconv.Atoi(value)
	if err != nil {
		return 0, IllegalValueError{Value: value, DestType: "int", Location: thiz.Location()}
	}
	return ret, nil
}

// Int64 returns the value of the named attribute parsed as a
// base-10 int64. A missing attribute is reported like a malformed
// one, as an IllegalValueError with an empty Value.
func (thiz *Cursor) Int64(localName string) (int64, error) {
	value, _ := thiz.AttributeValue(localName)
	ret, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, IllegalValueError{Value: value, DestType: "long", Location: thiz.Location()}
	}
	return ret, nil
}

// Int64Or returns the value of the named attribute parsed as a
// base-10 int64, or ifNot when the attribute is absent.
func (thiz *Cursor) Int64Or(localName string, ifNot int64) (int64, error) {
	value, ok := thiz.AttributeValue(localName)
	if !ok {
		return ifNot, nil
	}
	ret, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, IllegalValueError{Value: value, DestType: "long", Location: thiz.Location()}
	}
	return ret, nil
}

// String returns the value of the named attribute. A missing
// attribute produces a ParseError.
func (thiz *Cursor) String(localName string) (string, error) {
	value, ok := thiz.AttributeValue(localName)
	if !ok {
		return "", parseErrorf(thiz.Location(), "required attribute '%s' not found", localName)
	}
	return value, nil
}

// StringOr returns the value of the named attribute, or ifNot when
// the attribute is absent.
func (thiz *Cursor) StringOr(localName string, ifNot string) string {
	value, ok := thiz.AttributeValue(localName)
	if !ok {
		return ifNot
	}
	return value
}

// Date returns the value of the named attribute parsed as a
// calendar date in the form "2006-01-02". A missing attribute
// produces a ParseError, a malformed value an IllegalValueError.
func (thiz *Cursor) Date(localName string) (time.Time, error) {
	value, err := thiz.String(localName)
	if err != nil {
		return time.Time{}, err
	}
	return thiz.parseDate(value)
}

// DateOr returns the value of the named attribute parsed as a
// calendar date, or ifNot when the attribute is absent.
func (thiz *Cursor) DateOr(localName string, ifNot time.Time) (time.Time, error) {
	value, ok := thiz.AttributeValue(localName)
	if !ok {
		return ifNot, nil
	}
	return thiz.parseDate(value)
}

func (thiz *Cursor) parseDate(value string) (time.Time, error) {
	ret, err := time.Parse(dateFormat, value)
	if err != nil {
		return time.Time{}, IllegalValueError{Value: value, DestType: "date", Location: thiz.Location()}
	}
	return ret, nil
}

func locationOf(base Decoder) Location {
	if base == nil {
		return Location{}
	}
	return base.Location()
}

func kindName(kind byte) string {
	switch kind {
	case TokenTypeStartElement:
		return "start element"
	case TokenTypeEndElement:
		return "end element"
	case TokenTypeCharData:
		return "character data"
	case TokenTypeWhitespace:
		return "whitespace"
	case TokenTypeCDATA:
		return "CDATA section"
	case TokenTypeComment:
		return "comment"
	case TokenTypeProcInst:
		return "processing instruction"
	case TokenTypeDirective:
		return "directive"
	}
	return "unknown token"
}

// unescape resolves the predefined XML entity references and
// numeric character references in s. Unknown entities are passed
// through verbatim.
func unescape(s string) string {
	if strings.IndexByte(s, '&') < 0 {
		return s
	}
	var ret strings.Builder
	ret.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '&' {
			ret.WriteByte(c)
			i++
			continue
		}
		semi := strings.IndexByte(s[i:], ';')
		if semi < 0 {
			ret.WriteByte(c)
			i++
			continue
		}
		if rep, ok := resolveEntity(s[i+1 : i+semi]); ok {
			ret.WriteString(rep)
		} else {
			ret.WriteString(s[i : i+semi+1])
		}
		i += semi + 1
	}
	return ret.String()
}

func resolveEntity(ent string) (string, bool) {
	switch ent {
	case "lt":
		return "<", true
	case "gt":
		return ">", true
	case "amp":
		return "&", true
	case "apos":
		return "'", true
	case "quot":
		return "\"", true
	}
	if len(ent) > 1 && ent[0] == '#' {
		digits := ent[1:]
		base := 10
		if digits[0] == 'x' || digits[0] == 'X' {
			base = 16
			digits = digits[1:]
		}
		n, err := strconv.ParseUint(digits, base, 32)
		if err == nil {
			return string(rune(n)), true
		}
	}
	return "", false
}
