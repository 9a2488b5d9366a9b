package xmlcursor

import (
	"io"
	"strconv"
	"strings"
	"time"
)

// IndentEncoder wraps an Encoder and indents the serialized output
// with a newline and one tab per nesting level before each
// structural write (start element, processing instruction,
// directive). End tags are only indented while the element's last
// write was structural as well; after character data or comments
// the end tag stays glued to the content so that no significant
// whitespace is introduced.
type IndentEncoder struct {
	enc    *Encoder
	indent []byte
	level  int
	needNL bool
}

// NewIndentEncoder creates an IndentEncoder writing into w.
func NewIndentEncoder(w io.Writer) *IndentEncoder {
	return &IndentEncoder{
		enc:    NewEncoder(w),
		indent: makeIndent(4),
	}
}

// Reset resets this IndentEncoder to write into the provided
// io.Writer, starting over at nesting level zero.
func (thiz *IndentEncoder) Reset(w io.Writer) {
	thiz.enc.Reset(w)
	thiz.level = 0
	thiz.needNL = false
}

// EncodeToken writes the Token like Encoder.EncodeToken does, with
// indentation inserted around structural tokens.
func (thiz *IndentEncoder) EncodeToken(t *Token) error {
	switch t.Kind {
	case TokenTypeStartElement:
		err := thiz.writeIndent()
		if err != nil {
			return err
		}
		thiz.level++
		thiz.needNL = false
		return thiz.enc.EncodeToken(t)
	case TokenTypeEndElement:
		if thiz.level > 0 {
			thiz.level--
		}
		if thiz.needNL {
			err := thiz.writeIndent()
			if err != nil {
				return err
			}
		}
		thiz.needNL = true
		return thiz.enc.EncodeToken(t)
	case TokenTypeProcInst, TokenTypeDirective:
		err := thiz.writeIndent()
		if err != nil {
			return err
		}
		thiz.needNL = true
		return thiz.enc.EncodeToken(t)
	default:
		thiz.needNL = false
		return thiz.enc.EncodeToken(t)
	}
}

// StartElement writes the start tag of an element with the given
// attributes. Build the attributes with StringAttr, IntAttr and
// DateAttr.
func (thiz *IndentEncoder) StartElement(localName string, attrs ...Attr) error {
	return thiz.EncodeToken(&Token{
		Kind: TokenTypeStartElement,
		Name: Name{Local: []byte(localName)},
		Attr: attrs,
	})
}

// EndElement closes the element with the given local name. An
// element without any content in between is collapsed to the
// empty-element form.
func (thiz *IndentEncoder) EndElement(localName string) error {
	return thiz.EncodeToken(&Token{
		Kind: TokenTypeEndElement,
		Name: Name{Local: []byte(localName)},
	})
}

// Text writes escaped character data.
func (thiz *IndentEncoder) Text(text string) error {
	return thiz.EncodeToken(&Token{
		Kind:     TokenTypeCharData,
		ByteData: []byte(escape(text)),
	})
}

// TextElement writes an element containing nothing but the given
// text. The start tag is indented like any other element, only the
// end tag stays glued to the text.
func (thiz *IndentEncoder) TextElement(localName, text string) error {
	err := thiz.StartElement(localName)
	if err != nil {
		return err
	}
	err = thiz.Text(text)
	if err != nil {
		return err
	}
	return thiz.EndElement(localName)
}

// Comment writes an XML comment.
func (thiz *IndentEncoder) Comment(text string) error {
	return thiz.EncodeToken(&Token{
		Kind:     TokenTypeComment,
		ByteData: []byte(text),
	})
}

// ProcInst writes a processing instruction like <?target data?>.
func (thiz *IndentEncoder) ProcInst(target, data string) error {
	return thiz.EncodeToken(&Token{
		Kind:     TokenTypeProcInst,
		Name:     Name{Local: []byte(target)},
		ByteData: []byte(data),
	})
}

// Directive writes a markup declaration like <!DOCTYPE ...>, where
// text is the declaration without the "<!" and ">" delimiters.
func (thiz *IndentEncoder) Directive(text string) error {
	return thiz.EncodeToken(&Token{
		Kind:     TokenTypeDirective,
		ByteData: []byte(text),
	})
}

func (thiz *IndentEncoder) writeIndent() error {
	n := thiz.level + 1
	if n > len(thiz.indent) {
		thiz.indent = makeIndent(n * 2)
	}
	return thiz.enc.EncodeToken(&Token{
		Kind:     TokenTypeWhitespace,
		ByteData: thiz.indent[:n],
	})
}

func makeIndent(n int) []byte {
	ret := make([]byte, n)
	for i := range ret {
		ret[i] = '\t'
	}
	ret[0] = '\n'
	return ret
}

// StringAttr builds a double-quoted attribute with an escaped
// value.
func StringAttr(localName, value string) Attr {
	return Attr{
		Name:  Name{Local: []byte(localName)},
		Value: []byte(escape(value)),
	}
}

// IntAttr builds an attribute holding a base-10 integer.
func IntAttr(localName string, value int) Attr {
	return Attr{
		Name:  Name{Local: []byte(localName)},
		Value: []byte(strconv.Itoa(value)),
	}
}

// DateAttr builds an attribute holding a calendar date in the form
// "2006-01-02".
func DateAttr(localName string, value time.Time) Attr {
	return Attr{
		Name:  Name{Local: []byte(localName)},
		Value: []byte(value.Format(dateFormat)),
	}
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	"\"", "&quot;",
)

func escape(s string) string {
	return escaper.Replace(s)
}
