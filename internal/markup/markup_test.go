package markup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTestdata(t *testing.T, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	require.NoError(t, err)
	return string(data)
}

func listingRules() []Rule {
	return []Rule{
		{Name: "title", Selector: "h2.show-title a"},
		{Name: "href", Selector: "h2.show-title a", Attr: "href"},
		{Name: "episode", Selector: "a.v-card", Attr: "href"},
		{Name: "poster", Selector: "div.v-image__image--cover", Attr: "style", Transform: StyleURL},
		{Name: "tags", Selector: "span.v-chip__content", Multiple: true},
	}
}

func TestExtractListing(t *testing.T) {
	html := readTestdata(t, "latest.html")

	records, err := Extract(html, "div.latest-update div.show-item", listingRules())
	require.NoError(t, err)
	require.Len(t, records, 4)

	want := Record{
		"title":   {"One Piece"},
		"href":    {"/one-piece-0948"},
		"episode": {"/one-piece-0948/ep-1120-abc"},
		"poster":  {"https://cdn.example/poster/one-piece.webp"},
		"tags":    {"TV", "EP 1120", "SUB"},
	}
	if diff := cmp.Diff(want, records[0]); diff != "" {
		t.Errorf("first record mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Bleach: Thousand-Year Blood War", records[1].First("title"))
	assert.Equal(t, "https://cdn.example/poster/bleach.webp", records[1].First("poster"))

	// Missing fields are absent rather than empty strings.
	_, ok := records[3]["title"]
	assert.False(t, ok)
	assert.Equal(t, "", records[3].First("title"))
}

func TestExtractItemItself(t *testing.T) {
	html := `<ul><li data-id="1"> one </li><li data-id="2">two</li></ul>`

	records, err := Extract(html, "li", []Rule{
		{Name: "id", Attr: "data-id"},
		{Name: "text"},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].First("id"))
	assert.Equal(t, "one", records[0].First("text"))
	assert.Equal(t, "two", records[1].First("text"))
}

func TestExtractNoMatches(t *testing.T) {
	records, err := Extract(`<div></div>`, "div.show-item", listingRules())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStyleURL(t *testing.T) {
	assert.Equal(t, "https://a/b.jpg", StyleURL(`background-image: url("https://a/b.jpg");`))
	assert.Equal(t, "https://a/c.jpg", StyleURL(`background-image: url('https://a/c.jpg')`))
	assert.Equal(t, "https://a/d.jpg", StyleURL(`background-image: url(https://a/d.jpg)`))
	assert.Equal(t, "", StyleURL(`color: red`))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n\t b   c "))
}
