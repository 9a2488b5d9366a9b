package xmlcursor_test

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwidmann/xmlcursor"
)

// TestWriteThenRead builds a small report document with the
// IndentEncoder and navigates it back with a Cursor, checking that
// the typed attribute values survive the round trip.
func TestWriteThenRead(t *testing.T) {
	// given
	day := time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC)
	w := &bytes.Buffer{}
	enc := xmlcursor.NewIndentEncoder(w)
	require.NoError(t, enc.ProcInst("xml", `version="1.0"`))
	require.NoError(t, enc.StartElement("report", xmlcursor.DateAttr("day", day)))
	for i := 0; i < 3; i++ {
		require.NoError(t, enc.StartElement("entry",
			xmlcursor.IntAttr("nr", i),
			xmlcursor.StringAttr("what", "a \"quoted\" <thing>")))
		require.NoError(t, enc.EndElement("entry"))
	}
	require.NoError(t, enc.TextElement("summary", "3 entries & counting"))
	require.NoError(t, enc.EndElement("report"))

	// when
	report, err := xmlcursor.NewCursor(bytes.NewReader(w.Bytes()), "report.xml").Required("report")
	require.NoError(t, err)

	// then
	gotDay, err := report.Date("day")
	require.NoError(t, err)
	assert.True(t, gotDay.Equal(day))

	nr := 0
	for it := report.Multiple("entry"); it.Next(); {
		entry := it.Value()
		gotNr, err := entry.Int("nr")
		require.NoError(t, err)
		assert.Equal(t, nr, gotNr)
		what, err := entry.String("what")
		require.NoError(t, err)
		assert.Equal(t, "a \"quoted\" <thing>", what)
		nr++
	}
	assert.Equal(t, 3, nr)

	summary, err := report.Required("summary")
	require.NoError(t, err)
	text, err := summary.GetText()
	require.NoError(t, err)
	assert.Equal(t, "3 entries & counting", text)
}

// TestSelectiveExtraction reads only a few interesting values out
// of a larger document, abandoning everything else.
func TestSelectiveExtraction(t *testing.T) {
	// given
	doc := `<?xml version="1.0"?>
<!DOCTYPE catalog>
<catalog>
	<!-- bulky metadata we do not care about -->
	<meta><created by="someone"/><huge><nested><stuff/></nested></huge></meta>
	<book id="7" title="The Go Programming Language">
		<author>Donovan</author>
		<author>Kernighan</author>
	</book>
	<book id="9" title="Mastering Regular Expressions"/>
</catalog>`
	catalog, err := xmlcursor.NewCursor(bytes.NewReader([]byte(doc)), "catalog.xml").Required("catalog")
	require.NoError(t, err)

	// when: jump straight to the first book
	book, err := catalog.SkipTo("book")
	require.NoError(t, err)

	// then
	id, err := book.Int("id")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	author, err := book.Required("author")
	require.NoError(t, err)
	name, err := author.GetText()
	require.NoError(t, err)
	assert.Equal(t, "Donovan", name)

	// the book keeps its attributes although a child was read in
	// the meantime
	assert.Equal(t, strconv.Itoa(7), book.StringOr("id", ""))

	// abandon the second author, move on to the next book
	next, err := catalog.SkipTo("book")
	require.NoError(t, err)
	title, err := next.String("title")
	require.NoError(t, err)
	assert.Equal(t, "Mastering Regular Expressions", title)
}
