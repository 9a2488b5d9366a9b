package xmlcursor

import (
	"fmt"
	"io"
	"reflect"
	"unsafe"
)

// pre-allocate all constant byte slices that we write
var (
	angleOpen       = bs("<")
	angleClose      = bs(">")
	slashAngleClose = bs("/>")
	angleOpenSlash  = bs("</")
	space           = bs(" ")
	equal           = bs("=")
	angleOpenQuest  = bs("<?")
	questAngleClose = bs("?>")
	angleOpenBang   = bs("<!")
	commentOpen     = bs("<!--")
	commentClose    = bs("-->")
	cdataOpen       = bs("<![CDATA[")
	cdataClose      = bs("]]>")
	colon           = bs(":")
	singleQuote     = bs("'")
	doubleQuote     = bs("\"")
)

// Encoder encodes Token values to an io.Writer.
// It is the inverse of Decoder and performs no escaping of its own;
// ByteData and attribute values are written verbatim.
type Encoder struct {
	// The io.Writer we encode/write into.
	w io.Writer

	// Whether the last token was of type TokenTypeStartElement.
	// This is used to delay encoding the ending ">" or "/>" string
	// based on whether the element is immediately closed afterwards.
	lastStartElement bool
}

// NewEncoder creates a new Encoder and returns a pointer to it.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w: w,
	}
}

// Reset resets this Encoder to write into the provided io.Writer.
func (thiz *Encoder) Reset(w io.Writer) {
	thiz.w = w
	thiz.lastStartElement = false
}

// EncodeToken writes the byte-representation of the Token to the
// io.Writer of this Encoder.
func (thiz *Encoder) EncodeToken(t *Token) error {
	switch t.Kind {
	case TokenTypeStartElement:
		err := thiz.encodeStartElement(t)
		if err != nil {
			return err
		}
		thiz.lastStartElement = true
		return nil
	case TokenTypeEndElement:
		err := thiz.encodeEndElement(t)
		thiz.lastStartElement = false
		return err
	case TokenTypeCharData, TokenTypeWhitespace:
		err := thiz.encodeByteData(t, nil, nil)
		thiz.lastStartElement = false
		return err
	case TokenTypeCDATA:
		err := thiz.encodeByteData(t, cdataOpen, cdataClose)
		thiz.lastStartElement = false
		return err
	case TokenTypeComment:
		err := thiz.encodeByteData(t, commentOpen, commentClose)
		thiz.lastStartElement = false
		return err
	case TokenTypeDirective:
		err := thiz.encodeByteData(t, angleOpenBang, angleClose)
		thiz.lastStartElement = false
		return err
	case TokenTypeProcInst:
		err := thiz.encodeProcInst(t)
		thiz.lastStartElement = false
		return err
	default:
		thiz.lastStartElement = false
		return fmt.Errorf("cannot encode token kind %d", t.Kind)
	}
}

func (thiz *Encoder) encodeStartElement(t *Token) error {
	err := thiz.endLastStartElement()
	if err != nil {
		return err
	}
	_, err = thiz.w.Write(angleOpen)
	if err != nil {
		return err
	}

	// write element name
	err = thiz.writeName(t.Name)
	if err != nil {
		return err
	}

	// write attributes
	for _, attr := range t.Attr {
		_, err = thiz.w.Write(space)
		if err != nil {
			return err
		}
		err = thiz.writeName(attr.Name)
		if err != nil {
			return err
		}
		_, err = thiz.w.Write(equal)
		if err != nil {
			return err
		}
		err = thiz.writeString(attr.Value, attr.SingleQuote)
		if err != nil {
			return err
		}
	}

	// DO NOT write the ending ">" character, because the element
	// could get closed right away with the next EndElement token.

	return nil
}

func (thiz *Encoder) encodeEndElement(t *Token) error {
	if thiz.lastStartElement {
		// the last seen token was a StartElement, so this
		// token can only be its accompanying EndElement.
		_, err := thiz.w.Write(slashAngleClose)
		return err
	}
	_, err := thiz.w.Write(angleOpenSlash)
	if err != nil {
		return err
	}
	err = thiz.writeName(t.Name)
	if err != nil {
		return err
	}
	_, err = thiz.w.Write(angleClose)
	return err
}

func (thiz Encoder) writeName(n Name) error {
	var err error
	if n.Prefix != nil {
		_, err = thiz.w.Write(n.Prefix)
		if err != nil {
			return err
		}
		_, err = thiz.w.Write(colon)
		if err != nil {
			return err
		}
	}
	_, err = thiz.w.Write(n.Local)
	return err
}

func (thiz Encoder) writeString(s []byte, useSingleQuote bool) error {
	quote := doubleQuote
	if useSingleQuote {
		quote = singleQuote
	}
	_, err := thiz.w.Write(quote)
	if err != nil {
		return err
	}
	_, err = thiz.w.Write(s)
	if err != nil {
		return err
	}
	_, err = thiz.w.Write(quote)
	return err
}

func (thiz *Encoder) encodeByteData(t *Token, pre, post []byte) error {
	err := thiz.endLastStartElement()
	if err != nil {
		return err
	}
	if pre != nil {
		_, err = thiz.w.Write(pre)
		if err != nil {
			return err
		}
	}
	_, err = thiz.w.Write(t.ByteData)
	if err != nil {
		return err
	}
	if post != nil {
		_, err = thiz.w.Write(post)
	}
	return err
}

func (thiz *Encoder) endLastStartElement() error {
	if thiz.lastStartElement {
		// end the last StartElement with its ">"
		_, err := thiz.w.Write(angleClose)
		if err != nil {
			return err
		}
	}
	return nil
}

func (thiz *Encoder) encodeProcInst(t *Token) error {
	err := thiz.endLastStartElement()
	if err != nil {
		return err
	}
	_, err = thiz.w.Write(angleOpenQuest)
	if err != nil {
		return err
	}
	err = thiz.writeName(t.Name)
	if err != nil {
		return err
	}
	_, err = thiz.w.Write(space)
	if err != nil {
		return err
	}
	_, err = thiz.w.Write(t.ByteData)
	if err != nil {
		return err
	}
	_, err = thiz.w.Write(questAngleClose)
	return err
}

// https://stackoverflow.com/questions/59209493/how-to-use-unsafe-get-a-byte-slice-from-a-string-without-memory-copy#answer-59210739
func bs(s string) []byte {
	if s == "" {
		return []byte{}
	}
	return (*[0x7fff0000]byte)(unsafe.Pointer(
		(*reflect.StringHeader)(unsafe.Pointer(&s)).Data),
	)[:len(s):len(s)]
}
