package generator

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/wongohq/wongo/internal/models"
)

// Prompt templates embed the source body and keyword through these markers
const (
	placeholderSource  = "{원문}"
	placeholderKeyword = "{키워드}"
)

// lengthGuides map each length tier to its Korean directive
var lengthGuides = map[models.LengthOption]string{
	models.LengthShort:  "500자 내외의 짧은 글",
	models.LengthMedium: "1000자 내외의 보통 길이 글",
	models.LengthLong:   "2000자 내외의 긴 글",
}

// BuildPrompt assembles the final LLM prompt: placeholder substitution plus
// the length directive. An unknown length option falls back to medium.
func BuildPrompt(template, sourceHTML, keyword string, length models.LengthOption) string {
	prompt := strings.ReplaceAll(template, placeholderSource, sourceHTML)
	prompt = strings.ReplaceAll(prompt, placeholderKeyword, keyword)

	guide, ok := lengthGuides[length]
	if !ok {
		guide = lengthGuides[models.LengthMedium]
	}
	return prompt + "\n\n글 길이: " + guide
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// StripHTMLToText flattens article HTML into whitespace-normalized text
func StripHTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(whitespaceRegex.ReplaceAllString(html, " "))
	}
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(doc.Text(), " "))
}

// imageContextLimit caps the article context handed to image generation
const imageContextLimit = 1200

// BuildImageContext assembles the grounding text for new image generation:
// title, optional keyword, then the article text, capped at 1200 runes
func BuildImageContext(title, keyword, content string) string {
	parts := []string{"제목: " + title}
	if keyword != "" {
		parts = append(parts, "키워드: "+keyword)
	}
	parts = append(parts, content)

	context := strings.Join(parts, "\n")
	runes := []rune(context)
	if len(runes) > imageContextLimit {
		return string(runes[:imageContextLimit])
	}
	return context
}
