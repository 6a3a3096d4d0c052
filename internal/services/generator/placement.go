package generator

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockSelector lists the block-level tags the placement pass works with
const blockSelector = "p, h2, h3, h4, ul, ol, blockquote"

var paragraphRegex = regexp.MustCompile(`(?i)^<p[ >]`)
var blankLineRegex = regexp.MustCompile(`\n{2,}`)

// InsertImagesIntoHTML weaves image tags into generated manuscript HTML.
// Each image goes after the next paragraph block in order; when the content
// has no paragraphs, every block accepts an image. Images left over once the
// blocks run out are appended at the end.
func InsertImagesIntoHTML(contentHTML string, imageURLs []string) string {
	if len(imageURLs) == 0 {
		return contentHTML
	}

	blocks := extractBlocks(contentHTML)
	if len(blocks) == 0 {
		return contentHTML
	}

	hasParagraph := false
	for _, block := range blocks {
		if isParagraphBlock(block) {
			hasParagraph = true
			break
		}
	}

	imgIdx := 0
	result := make([]string, 0, len(blocks)+len(imageURLs))
	for _, block := range blocks {
		result = append(result, block)
		if imgIdx < len(imageURLs) && (!hasParagraph || isParagraphBlock(block)) {
			result = append(result, renderImageTag(imageURLs[imgIdx]))
			imgIdx++
		}
	}
	for ; imgIdx < len(imageURLs); imgIdx++ {
		result = append(result, renderImageTag(imageURLs[imgIdx]))
	}

	return strings.Join(result, "\n")
}

// extractBlocks splits manuscript HTML into block-level chunks. Plain text
// responses without block tags are split on blank lines and wrapped into
// escaped paragraphs.
func extractBlocks(contentHTML string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return nil
	}

	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		// Skip nested matches so a list inside a blockquote is not doubled
		if sel.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		if outer, err := goquery.OuterHtml(sel); err == nil {
			blocks = append(blocks, strings.TrimSpace(outer))
		}
	})
	if len(blocks) > 0 {
		return blocks
	}

	// Split the raw input, not the parsed text: goquery treats literal
	// angle brackets as markup and would drop their content
	text := strings.TrimSpace(contentHTML)
	if text == "" {
		return nil
	}
	for _, part := range blankLineRegex.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			blocks = append(blocks, "<p>"+html.EscapeString(part)+"</p>")
		}
	}
	return blocks
}

func isParagraphBlock(block string) bool {
	return paragraphRegex.MatchString(strings.TrimSpace(block))
}

func renderImageTag(url string) string {
	return fmt.Sprintf(`<figure><img src="%s" alt="" style="max-width:100%%;height:auto;" /></figure>`, url)
}
