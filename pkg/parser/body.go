package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/perarneng/autoboard/pkg/message"
)

// minPlainTextLength is the plain body length in characters below which the HTML body is
// preferred. Some senders put only a stub in text/plain.
const minPlainTextLength = 500

var (
	lineBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockEndPattern  = regexp.MustCompile(`(?i)</(div|p)>`)
)

// BodyText returns the text the field extractor runs over.
func BodyText(email *message.Email) string {
	text := email.Text()
	if email.HTML != nil && *email.HTML != "" && utf8.RuneCountInString(text) < minPlainTextLength {
		return HTMLToText(*email.HTML)
	}
	return text
}

// HTMLToText keeps line structure from <br>, </div> and </p> and drops all
// other markup.
func HTMLToText(html string) string {
	html = lineBreakPattern.ReplaceAllString(html, "\n")
	html = blockEndPattern.ReplaceAllString(html, "\n</$1>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return htmlTagPattern.ReplaceAllString(html, "")
	}
	doc.Find("head, script, style").Remove()

	return strings.ReplaceAll(doc.Text(), "\u00a0", " ")
}
