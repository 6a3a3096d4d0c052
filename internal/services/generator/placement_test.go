package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertImagesAfterParagraphs(t *testing.T) {
	content := "<p>one</p>\n<h2>head</h2>\n<p>two</p>\n<p>three</p>"
	urls := []string{"/img/1.png", "/img/2.png"}

	result := InsertImagesIntoHTML(content, urls)
	blocks := strings.Split(result, "\n")

	require.Len(t, blocks, 6)
	assert.Equal(t, "<p>one</p>", blocks[0])
	assert.Contains(t, blocks[1], `src="/img/1.png"`)
	assert.Equal(t, "<h2>head</h2>", blocks[2])
	assert.Equal(t, "<p>two</p>", blocks[3])
	assert.Contains(t, blocks[4], `src="/img/2.png"`)
	assert.Equal(t, "<p>three</p>", blocks[5])
}

func TestExtraImagesAppendedAtEnd(t *testing.T) {
	content := "<p>one</p>\n<p>two</p>"
	urls := []string{"/img/1.png", "/img/2.png", "/img/3.png", "/img/4.png"}

	result := InsertImagesIntoHTML(content, urls)

	for _, url := range urls {
		assert.Contains(t, result, url)
	}
	// Trailing images follow the last block
	idx3 := strings.Index(result, "/img/3.png")
	idx4 := strings.Index(result, "/img/4.png")
	idxLast := strings.Index(result, "<p>two</p>")
	assert.Greater(t, idx3, idxLast)
	assert.Greater(t, idx4, idx3)
}

func TestNoParagraphsFallsBackToAllBlocks(t *testing.T) {
	content := "<h2>first</h2>\n<ul><li>a</li></ul>"
	urls := []string{"/img/1.png", "/img/2.png"}

	result := InsertImagesIntoHTML(content, urls)
	blocks := strings.Split(result, "\n")

	require.Len(t, blocks, 4)
	assert.Contains(t, blocks[1], "/img/1.png")
	assert.Contains(t, blocks[3], "/img/2.png")
}

func TestPlainTextWrappedIntoEscapedParagraphs(t *testing.T) {
	content := "첫 번째 문단 <with brackets>\n\n두 번째 문단"
	urls := []string{"/img/1.png"}

	result := InsertImagesIntoHTML(content, urls)

	assert.Contains(t, result, "<p>첫 번째 문단 &lt;with brackets&gt;</p>")
	assert.Contains(t, result, "<p>두 번째 문단</p>")
	assert.Contains(t, result, "/img/1.png")
}

func TestImageTagShape(t *testing.T) {
	result := InsertImagesIntoHTML("<p>x</p>", []string{"https://cdn.example.com/a.png"})
	assert.Contains(t, result, `<figure><img src="https://cdn.example.com/a.png" alt="" style="max-width:100%;height:auto;" /></figure>`)
}

func TestNoImagesReturnsContentUnchanged(t *testing.T) {
	content := "<p>unchanged</p>"
	assert.Equal(t, content, InsertImagesIntoHTML(content, nil))
}
