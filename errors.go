package xmlcursor

import "fmt"

// NoMoreElementsError is returned by Required and SkipTo when the
// current element has no further child to produce.
type NoMoreElementsError struct {
	Location Location
}

func (e NoMoreElementsError) Error() string {
	return fmt.Sprintf("no more subelements available at %s", e.Location)
}

// UnexpectedElementError reports a mismatch between the expected
// and the actually found child element.
type UnexpectedElementError struct {
	Expected string
	Found    string
	Location Location
}

func (e UnexpectedElementError) Error() string {
	return fmt.Sprintf("element %s expected, found %s at %s", e.Expected, e.Found, e.Location)
}

// IllegalValueError indicates a malformed representation of a
// standard XML data type in an attribute value. It is returned by
// the typed attribute accessors of Cursor.
type IllegalValueError struct {
	Value    string
	DestType string
	Location Location
}

func (e IllegalValueError) Error() string {
	return fmt.Sprintf("value '%s' is not a legal %s at %s", e.Value, e.DestType, e.Location)
}

// ParseError is the generic error for structural violations that
// carry no more specific type, such as "end element expected",
// "required attribute not found" or unsupported mixed content.
// Syntax errors from the underlying Decoder are propagated
// unchanged, not wrapped in ParseError.
type ParseError struct {
	Msg      string
	Location Location
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Location)
}

func parseErrorf(loc Location, format string, args ...interface{}) error {
	return ParseError{Msg: fmt.Sprintf(format, args...), Location: loc}
}
