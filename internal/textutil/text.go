// Package textutil holds the Unicode helpers shared by catalog search and
// archive naming. Creature names are Vietnamese, so plain ASCII folding is not
// enough.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining marks so that "Rồng Hư Không" and
// "rong hu khong" compare equal. đ/Đ are letters of their own and are mapped
// to d explicitly.
func Fold(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			switch r {
			case 'đ', 'Đ':
				return 'd'
			}
			return unicode.ToLower(r)
		}),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// CleanFileName keeps letters, digits, space, '-' and '_', trims trailing
// space and turns the remaining spaces into underscores. Letters keep their
// accents; the result is NFC.
func CleanFileName(s string) string {
	t := transform.Chain(
		norm.NFC,
		runes.Remove(runes.Predicate(func(r rune) bool {
			return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_')
		})),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.TrimRight(out, " ")
	return strings.ReplaceAll(out, " ", "_")
}
