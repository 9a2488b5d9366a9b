package xmlcursor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Decoder decodes an XML input stream into Token values.
type Decoder interface {
	// NextToken decodes and stores the next Token into
	// the provided Token pointer.
	// Only the fields relevant for the decoded token type
	// are written to the Token. Other fields may have previous
	// values. The caller should thus determine the Token.Kind
	// and then only read/touch the fields relevant for that kind.
	// The end of the document is reported as io.EOF.
	NextToken(t *Token) error

	// Reset resets the Decoder to the given io.Reader.
	Reset(r io.Reader)

	// Location returns the current position of the decoder in the
	// input stream. It is only valid immediately after a call to
	// NextToken and becomes stale once the decoder advances.
	Location() Location
}

type decoder struct {
	rb               [2048]byte
	bbOffset         []int32
	numAttributes    []int
	lastOpen         Name
	rd               io.Reader
	bb               []byte
	attrs            []Attr
	r                int
	w                int
	top              int
	lastStartElement bool

	line     int
	col      int
	offset   int64
	prevLine int
	prevCol  int
}

var (
	bsCDATA = []byte("CDATA[")
)

// NewDecoder creates a new Decoder.
func NewDecoder(r io.Reader) Decoder {
	return &decoder{
		rd:            r,
		bb:            make([]byte, 0, 256),
		attrs:         make([]Attr, 0, 256),
		bbOffset:      make([]int32, 1, 32),
		numAttributes: make([]int, 1, 32),
		line:          1,
		col:           1,
	}
}

func isWhitespace(b byte) bool {
	return b <= ' '
}

func (thiz *decoder) Location() Location {
	return Location{Line: thiz.line, Column: thiz.col, Offset: thiz.offset}
}

// advanceLoc accounts for consumed input bytes.
// Every byte leaving the read buffer must pass through here
// exactly once, via readByte, discard or discardBuffer.
// The position before the last consumed byte is remembered so that
// unreadByte can restore it.
func (thiz *decoder) advanceLoc(bs []byte) {
	for i, b := range bs {
		if i == len(bs)-1 {
			thiz.prevLine = thiz.line
			thiz.prevCol = thiz.col
		}
		if b == '\n' {
			thiz.line++
			thiz.col = 1
		} else {
			thiz.col++
		}
	}
	thiz.offset += int64(len(bs))
}

func (thiz *decoder) read0() error {
	if thiz.r > 0 {
		copy(thiz.rb[:], thiz.rb[thiz.r:thiz.w])
		thiz.w -= thiz.r
		thiz.r = 0
	}
	n, err := thiz.rd.Read(thiz.rb[thiz.w : cap(thiz.rb)-16])
	thiz.w += n
	if n <= 0 && err != nil {
		return err
	}
	return nil
}

// unreadByte pushes back the most recently read byte.
// Only a single-step pushback is supported.
func (thiz *decoder) unreadByte() {
	thiz.r--
	thiz.line = thiz.prevLine
	thiz.col = thiz.prevCol
	thiz.offset--
}

func (thiz *decoder) readByte() (byte, error) {
	for thiz.r == thiz.w {
		err := thiz.read0()
		if err != nil {
			return 0, err
		}
	}
	c := thiz.rb[thiz.r]
	thiz.r++
	thiz.prevLine = thiz.line
	thiz.prevCol = thiz.col
	if c == '\n' {
		thiz.line++
		thiz.col = 1
	} else {
		thiz.col++
	}
	thiz.offset++
	return c, nil
}

func (thiz *decoder) discardBuffer() {
	thiz.advanceLoc(thiz.rb[thiz.r:thiz.w])
	thiz.r = thiz.w
}

func (thiz *decoder) discard(n int) (int, error) {
	for thiz.r+n > thiz.w {
		err := thiz.read0()
		if err != nil {
			return 0, err
		}
	}
	thiz.advanceLoc(thiz.rb[thiz.r : thiz.r+n])
	thiz.r += n
	return n, nil
}

func (thiz *decoder) Reset(r io.Reader) {
	thiz.rd = r
	thiz.r = 0
	thiz.w = 0
	thiz.attrs = thiz.attrs[:0]
	thiz.bb = thiz.bb[:0]
	thiz.top = 0
	thiz.lastStartElement = false
	thiz.line = 1
	thiz.col = 1
	thiz.offset = 0
	thiz.prevLine = 1
	thiz.prevCol = 1
}

func (thiz *decoder) skipWhitespaces(b byte) (byte, error) {
	for {
		if !isWhitespace(b) {
			return b, nil
		}
		var err error
		b, err = thiz.readByte()
		if err != nil {
			return 0, err
		}
	}
}

func (thiz *decoder) NextToken(t *Token) error {
	for {
		// read next character
		b, err := thiz.readByte()
		if err != nil {
			return err
		}
		switch b {
		case '>':
			// Previous StartElement now got properly ended.
			// That's fine. We just did not consume the end token
			// because there could have been an implicit
			// "/>" close at the end of the start element.
			thiz.lastStartElement = false
		case '/':
			if thiz.lastStartElement {
				// Immediately closing last opened StartElement.
				// This will generate an EndElement with the same
				// name that we used in the previous StartElement.
				_, err = thiz.discard(1)
				if err != nil {
					return err
				}
				thiz.lastStartElement = false
				return thiz.decodeEndElement(t, thiz.lastOpen)
			}
			thiz.unreadByte()
			return thiz.decodeText(t)
		case '<':
			b, err = thiz.readByte()
			if err != nil {
				return err
			}
			switch b {
			case '?':
				thiz.lastStartElement = false
				err = thiz.decodeProcInst(t)
				thiz.unreadByte()
				return err
			case '!':
				// comment, CDATA or directive
				b, err = thiz.readByte()
				if err != nil {
					return err
				}
				switch b {
				case '-':
					thiz.lastStartElement = false
					return thiz.decodeComment(t)
				case '[':
					thiz.lastStartElement = false
					return thiz.decodeCDATA(t)
				default:
					thiz.lastStartElement = false
					thiz.unreadByte()
					return thiz.decodeDirective(t)
				}
			case '/':
				var name Name
				name, _, err = thiz.readName()
				if err != nil {
					return err
				}
				thiz.lastStartElement = false
				return thiz.decodeEndElement(t, name)
			default:
				thiz.lastStartElement = true
				return thiz.decodeStartElement(t)
			}
		default:
			thiz.lastStartElement = false
			thiz.unreadByte()
			return thiz.decodeText(t)
		}
	}
}

func (thiz *decoder) decodeProcInst(t *Token) error {
	name, b, err := thiz.readName()
	if err != nil {
		return err
	}
	b, err = thiz.skipWhitespaces(b)
	if err != nil {
		return err
	}
	i := len(thiz.bb)
	j := i
	for {
		if b == '?' {
			for {
				var b2 byte
				b2, err = thiz.readByte()
				if err != nil {
					return err
				}
				if b2 == '>' {
					t.Kind = TokenTypeProcInst
					t.Name = name
					t.ByteData = thiz.bb[i:j]
					return nil
				} else if b2 != '?' {
					thiz.bb = append(thiz.bb, b, b2)
					if !isWhitespace(b2) {
						j = len(thiz.bb)
					}
					break
				}
				thiz.bb = append(thiz.bb, b2)
				if !isWhitespace(b2) {
					j = len(thiz.bb)
				}
			}
		} else {
			thiz.bb = append(thiz.bb, b)
			if !isWhitespace(b) {
				j = len(thiz.bb)
			}
		}
		b, err = thiz.readByte()
		if err != nil {
			return err
		}
	}
}

// decodeComment decodes "<!--...-->" into a TokenTypeComment.
// The leading "<!-" has already been consumed.
func (thiz *decoder) decodeComment(t *Token) error {
	b, err := thiz.readByte()
	if err != nil {
		return err
	}
	if b != '-' {
		return errors.New("invalid XML: comment expected")
	}
	i := len(thiz.bb)
	for {
		b, err = thiz.readByte()
		if err != nil {
			return err
		}
		n := len(thiz.bb)
		if b == '>' && n-i >= 2 && thiz.bb[n-1] == '-' && thiz.bb[n-2] == '-' {
			t.Kind = TokenTypeComment
			t.ByteData = thiz.bb[i : n-2]
			return nil
		}
		thiz.bb = append(thiz.bb, b)
	}
}

// decodeCDATA decodes "<![CDATA[...]]>" into a TokenTypeCDATA.
// The leading "<![" has already been consumed.
func (thiz *decoder) decodeCDATA(t *Token) error {
	for k := 0; k < len(bsCDATA); k++ {
		b, err := thiz.readByte()
		if err != nil {
			return err
		}
		if b != bsCDATA[k] {
			return errors.New("invalid XML: CDATA expected")
		}
	}
	i := len(thiz.bb)
	for {
		b, err := thiz.readByte()
		if err != nil {
			return err
		}
		n := len(thiz.bb)
		if b == '>' && n-i >= 2 && thiz.bb[n-1] == ']' && thiz.bb[n-2] == ']' {
			t.Kind = TokenTypeCDATA
			t.ByteData = thiz.bb[i : n-2]
			return nil
		}
		thiz.bb = append(thiz.bb, b)
	}
}

// decodeDirective decodes "<!DOCTYPE...>" (or any other markup
// declaration) into a TokenTypeDirective whose ByteData is the
// declaration without the "<!" and ">" delimiters. An internal
// subset in brackets is passed through verbatim.
func (thiz *decoder) decodeDirective(t *Token) error {
	i := len(thiz.bb)
	depth := 1
	var quote byte
	for {
		b, err := thiz.readByte()
		if err != nil {
			return err
		}
		if quote != 0 {
			if b == quote {
				quote = 0
			}
		} else {
			switch b {
			case '\'', '"':
				quote = b
			case '<':
				depth++
			case '>':
				depth--
				if depth == 0 {
					t.Kind = TokenTypeDirective
					t.ByteData = thiz.bb[i:len(thiz.bb)]
					return nil
				}
			}
		}
		thiz.bb = append(thiz.bb, b)
	}
}

func (thiz *decoder) decodeEndElement(t *Token, name Name) error {
	// a stray end tag at document level has no slot to pop
	if thiz.top > 0 {
		end := len(thiz.attrs) - thiz.numAttributes[thiz.top]
		thiz.attrs = thiz.attrs[0:end]
		thiz.bb = thiz.bb[:thiz.bbOffset[thiz.top]]
		thiz.top--
	}
	t.Kind = TokenTypeEndElement
	t.Name = name
	return nil
}

func (thiz *decoder) decodeStartElement(t *Token) error {
	thiz.top++
	if thiz.top == len(thiz.numAttributes) {
		thiz.numAttributes = append(thiz.numAttributes, 0)
		thiz.bbOffset = append(thiz.bbOffset, 0)
	}
	thiz.numAttributes[thiz.top] = 0
	thiz.bbOffset[thiz.top] = int32(len(thiz.bb))
	thiz.unreadByte()
	name, b, err := thiz.readName()
	if err != nil {
		return err
	}
	var attributes []Attr
	attributes, err = thiz.decodeAttributes(b)
	if err != nil {
		return err
	}
	thiz.lastOpen = name
	t.Kind = TokenTypeStartElement
	t.Name = name
	t.Attr = attributes
	thiz.unreadByte()
	return nil
}

// decodeText decodes a run of character data up to the next '<'.
// Runs that consist solely of whitespace are reported as
// TokenTypeWhitespace so that callers can tell insignificant
// inter-element space from text content.
func (thiz *decoder) decodeText(t *Token) error {
	i := len(thiz.bb)
	onlyWhitespaces := true
	for {
		j := thiz.r
		for k := j; k < thiz.w; k++ {
			b := thiz.rb[k]
			if b == '<' {
				_, err := thiz.discard(k - j)
				if err != nil {
					return err
				}
				thiz.bb = append(thiz.bb, thiz.rb[j:k]...)
				if onlyWhitespaces {
					t.Kind = TokenTypeWhitespace
				} else {
					t.Kind = TokenTypeCharData
				}
				t.ByteData = thiz.bb[i:len(thiz.bb)]
				return nil
			}
			onlyWhitespaces = onlyWhitespaces && isWhitespace(b)
		}
		thiz.bb = append(thiz.bb, thiz.rb[j:thiz.w]...)
		thiz.discardBuffer()
		err := thiz.read0()
		if err != nil {
			return err
		}
	}
}

func (thiz *decoder) readName() (Name, byte, error) {
	localOrPrefix, b, err := thiz.readSimpleName()
	if err != nil {
		return Name{}, 0, err
	}
	if b == ':' {
		var local []byte
		local, b, err = thiz.readSimpleName()
		if err != nil {
			return Name{}, 0, err
		}
		return Name{
			Local:  local,
			Prefix: localOrPrefix,
		}, b, nil
	}
	return Name{
		Local: localOrPrefix,
	}, b, nil
}

var seps = generateTable()

func generateTable() ['>' + 1]bool {
	var s ['>' + 1]bool
	s['\t'] = true
	s['\n'] = true
	s['\r'] = true
	s[' '] = true
	s['/'] = true
	s[':'] = true
	s['='] = true
	s['>'] = true
	return s
}

func isSeparator(b byte) bool {
	return int(b) < len(seps) && seps[b]
}

func (thiz *decoder) readSimpleName() ([]byte, byte, error) {
	i := len(thiz.bb)
	for {
		j := thiz.r
		for k := j; k < thiz.w; k++ {
			if isSeparator(thiz.rb[k]) {
				thiz.bb = append(thiz.bb, thiz.rb[j:k]...)
				_, err := thiz.discard(k - j + 1)
				if err != nil {
					return nil, 0, err
				}
				return thiz.bb[i:len(thiz.bb)], thiz.rb[k], nil
			}
		}
		thiz.bb = append(thiz.bb, thiz.rb[j:thiz.w]...)
		thiz.discardBuffer()
		err := thiz.read0()
		if err != nil {
			return nil, 0, err
		}
	}
}

func (thiz *decoder) decodeAttributes(b byte) ([]Attr, error) {
	i := len(thiz.attrs)
	for {
		var err error
		b, err = thiz.skipWhitespaces(b)
		if err != nil {
			return nil, err
		}
		switch b {
		case '/', '>':
			return thiz.attrs[i:len(thiz.attrs)], nil
		default:
			i := len(thiz.attrs)
			thiz.attrs = append(thiz.attrs, Attr{})
			err = thiz.decodeAttribute(&thiz.attrs[i])
			if err != nil {
				return nil, err
			}
			b, err = thiz.readByte()
			if err != nil {
				return nil, err
			}
			thiz.numAttributes[thiz.top]++
		}
	}
}

// decodeAttribute parses a single XML attribute.
// After this function returns, the next reader symbol
// is the byte after the closing single or double quote
// of the attribute's value.
func (thiz *decoder) decodeAttribute(attr *Attr) error {
	thiz.unreadByte()
	name, b, err := thiz.readName()
	if err != nil {
		return err
	}
	b, err = thiz.skipWhitespaces(b)
	if err != nil {
		return err
	}
	if b != '=' {
		return fmt.Errorf("expected '=' character following attribute %+v", name)
	}
	b, err = thiz.readByte()
	if err != nil {
		return err
	}
	b, err = thiz.skipWhitespaces(b)
	if err != nil {
		return err
	}
	value, singleQuote, err := thiz.readString(b)
	if err != nil {
		return err
	}
	attr.Name = name
	attr.SingleQuote = singleQuote
	attr.Value = value
	return nil
}

// readString parses a single string (in single or double quotes)
func (thiz *decoder) readString(b byte) ([]byte, bool, error) {
	i := len(thiz.bb)
	singleQuote := b == '\''
	for {
		j := thiz.r
		k := bytes.IndexByte(thiz.rb[j:thiz.w], b)
		if k > -1 {
			thiz.bb = append(thiz.bb, thiz.rb[j:j+k]...)
			_, err := thiz.discard(k + 1)
			if err != nil {
				return nil, false, err
			}
			return thiz.bb[i:len(thiz.bb)], singleQuote, nil
		}
		thiz.bb = append(thiz.bb, thiz.rb[j:thiz.w]...)
		thiz.discardBuffer()
		err := thiz.read0()
		if err != nil {
			return nil, false, err
		}
	}
}
