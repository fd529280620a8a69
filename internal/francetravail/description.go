package francetravail

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainDescription возвращает описание оффера без HTML разметки
// и с нормализованными пробелами.
func (o JobOffer) PlainDescription() string {
	return PlainText(o.Description)
}

// PlainText извлекает текст из фрагмента HTML. Обычный текст возвращается как есть.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	doc.Find("script, style").Remove()
	doc.Find("br, p, li, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " ")
}
