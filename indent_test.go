package xmlcursor

import (
	"bytes"
	"io/ioutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndentDocument(t *testing.T) {
	// given
	w := &bytes.Buffer{}
	enc := NewIndentEncoder(w)

	// when
	require.NoError(t, enc.ProcInst("xml", `version="1.0"`))
	require.NoError(t, enc.StartElement("root"))
	require.NoError(t, enc.StartElement("item",
		StringAttr("name", "a<b"),
		IntAttr("nr", 1)))
	require.NoError(t, enc.EndElement("item"))
	require.NoError(t, enc.TextElement("note", "hi"))
	require.NoError(t, enc.EndElement("root"))

	// then
	assert.Equal(t, "\n<?xml version=\"1.0\"?>"+
		"\n<root>"+
		"\n\t<item name=\"a&lt;b\" nr=\"1\"/>"+
		"\n\t<note>hi</note>"+
		"\n</root>", w.String())
}

func TestIndentNesting(t *testing.T) {
	// given
	w := &bytes.Buffer{}
	enc := NewIndentEncoder(w)

	// when
	require.NoError(t, enc.StartElement("a"))
	require.NoError(t, enc.StartElement("b"))
	require.NoError(t, enc.StartElement("c"))
	require.NoError(t, enc.EndElement("c"))
	require.NoError(t, enc.EndElement("b"))
	require.NoError(t, enc.EndElement("a"))

	// then: end tags of elements with element content are indented,
	// empty elements collapse
	assert.Equal(t, "\n<a>"+
		"\n\t<b>"+
		"\n\t\t<c/>"+
		"\n\t</b>"+
		"\n</a>", w.String())
}

func TestIndentSuppressedAfterText(t *testing.T) {
	// given
	w := &bytes.Buffer{}
	enc := NewIndentEncoder(w)

	// when
	require.NoError(t, enc.StartElement("a"))
	require.NoError(t, enc.Text("x & y"))
	require.NoError(t, enc.EndElement("a"))

	// then: no newline between the text and its end tag
	assert.Equal(t, "\n<a>x &amp; y</a>", w.String())
}

func TestIndentComment(t *testing.T) {
	// given
	w := &bytes.Buffer{}
	enc := NewIndentEncoder(w)

	// when
	require.NoError(t, enc.StartElement("a"))
	require.NoError(t, enc.Comment(" note "))
	require.NoError(t, enc.EndElement("a"))

	// then: comments do not get indented and keep the end tag glued
	assert.Equal(t, "\n<a><!-- note --></a>", w.String())
}

func TestIndentDirective(t *testing.T) {
	// given
	w := &bytes.Buffer{}
	enc := NewIndentEncoder(w)

	// when
	require.NoError(t, enc.Directive(`DOCTYPE note SYSTEM "note.dtd"`))
	require.NoError(t, enc.StartElement("note"))
	require.NoError(t, enc.EndElement("note"))

	// then
	assert.Equal(t, "\n<!DOCTYPE note SYSTEM \"note.dtd\">"+
		"\n<note/>", w.String())
}

func TestIndentEncoderReset(t *testing.T) {
	// given
	enc := NewIndentEncoder(ioutil.Discard)
	require.NoError(t, enc.StartElement("a"))

	// when
	w := &bytes.Buffer{}
	enc.Reset(w)
	require.NoError(t, enc.StartElement("b"))
	require.NoError(t, enc.EndElement("b"))

	// then: nesting starts over at level zero
	assert.Equal(t, "\n<b/>", w.String())
}

func TestDateAttr(t *testing.T) {
	// given
	w := &bytes.Buffer{}
	enc := NewIndentEncoder(w)
	date := time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC)

	// when
	require.NoError(t, enc.StartElement("a", DateAttr("when", date)))
	require.NoError(t, enc.EndElement("a"))

	// then
	assert.Equal(t, "\n<a when=\"2014-02-01\"/>", w.String())
}

func TestEncodeCDATA(t *testing.T) {
	// given
	w := &bytes.Buffer{}
	enc := NewEncoder(w)

	// when
	require.NoError(t, enc.EncodeToken(&Token{
		Kind: TokenTypeStartElement,
		Name: Name{Local: []byte("a")},
	}))
	require.NoError(t, enc.EncodeToken(&Token{
		Kind:     TokenTypeCDATA,
		ByteData: []byte("1 < 2"),
	}))
	require.NoError(t, enc.EncodeToken(&Token{
		Kind: TokenTypeEndElement,
		Name: Name{Local: []byte("a")},
	}))

	// then
	assert.Equal(t, "<a><![CDATA[1 < 2]]></a>", w.String())
}

func BenchmarkEncode(b *testing.B) {
	w := ioutil.Discard
	enc := NewEncoder(w)
	token0 := Token{
		Kind: TokenTypeStartElement,
		Name: Name{
			Local: []byte("a"),
		},
		Attr: []Attr{{
			Name: Name{
				Local: []byte("nr"),
			},
			Value: []byte("1"),
		}},
	}
	token1 := Token{
		Kind: TokenTypeEndElement,
		Name: Name{
			Local: []byte("a"),
		},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		enc.Reset(w)
		err := enc.EncodeToken(&token0)
		assert.Nil(b, err)
		err = enc.EncodeToken(&token1)
		assert.Nil(b, err)
	}
}
