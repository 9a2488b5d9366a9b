package xmlcursor

import "strconv"

// Name is a name with a possible prefix like "ns:item"
// or simply without prefix like "item".
// Prefixes are passed through verbatim; this package does
// not resolve namespaces.
type Name struct {
	Local  []byte
	Prefix []byte
}

// Attr is an attribute of an element.
// Only tokens of kind TokenTypeStartElement carry attributes.
type Attr struct {
	Name        Name
	SingleQuote bool
	Value       []byte
}

// constants for Token.Kind
const (
	TokenTypeStartElement = iota
	TokenTypeEndElement
	TokenTypeCharData
	TokenTypeWhitespace
	// TokenTypeCDATA is character data from a CDATA section.
	// Unlike TokenTypeCharData its bytes contain no entity
	// references and must be taken verbatim.
	TokenTypeCDATA
	TokenTypeComment
	TokenTypeProcInst
	TokenTypeDirective
)

// Token represents the union of all possible token types
// and their respective information.
type Token struct {
	Kind byte

	// only for TokenTypeStartElement and TokenTypeEndElement
	Name Name

	// only for TokenTypeStartElement
	Attr []Attr

	// only for TokenTypeCharData, TokenTypeWhitespace,
	// TokenTypeCDATA, TokenTypeComment, TokenTypeDirective and
	// TokenTypeProcInst
	ByteData []byte
}

// Location is a position in the decoded input stream.
// Line and Column are 1-based, Offset counts bytes from the
// start of the input.
type Location struct {
	Line   int
	Column int
	Offset int64
}

func (l Location) String() string {
	if l.Line == 0 {
		return "unknown position"
	}
	return "line " + strconv.Itoa(l.Line) + ", column " + strconv.Itoa(l.Column)
}
