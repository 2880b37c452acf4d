// Package productid приводит человекочитаемые идентификаторы продуктов и
// названия курсов к каноничной машинной форме. Одна и та же функция
// Normalize применяется при создании курса и при разборе вебхука.
package productid

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize переводит идентификатор в нижний регистр и заменяет каждую
// последовательность пробельных символов одним подчёркиванием.
// Пробелы по краям отбрасываются. Функция идемпотентна.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "_")
}

// Slug строит URL-слаг из названия курса: диакритика удаляется,
// буквы и цифры сохраняются, остальные символы схлопываются в дефис.
func Slug(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, title)
	if err != nil {
		plain = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
