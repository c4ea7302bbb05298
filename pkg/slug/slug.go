// Package slug builds URL slugs for imported articles, authors and tags.
package slug

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds generated slugs, in runes. Longer input is cut at a word boundary when possible.
const MaxLength = 100

// suffixLength is the size of the hash suffix added by Disambiguate.
const suffixLength = 8

// Make lowercases s, folds diacritics of Latin letters, and joins words with hyphens.
// Letters and digits of every script are kept; other characters separate words.
// A '+' or '#' directly after a word is spelled out, so "C++" and "C#" do not
// collapse into "c".
func Make(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	word := func(w string) {
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteString(w)
	}

	var prev rune
	for _, r := range strings.ToLower(fold(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc):
			if unicode.In(r, unicode.Mn, unicode.Mc) && b.Len() == 0 {
				break
			}
			word(string(r))
		case r == '+' && (isWordRune(prev) || prev == '+'):
			pendingHyphen = true
			word("plus")
		case r == '#' && isWordRune(prev):
			pendingHyphen = true
			word("sharp")
		default:
			pendingHyphen = true
		}
		prev = r
	}
	return truncate(b.String())
}

// Disambiguate appends a short suffix derived from name to s. The suffix is
// stable, so the same name always yields the same slug. An empty s yields the
// suffix alone.
func Disambiguate(s, name string) string {
	suffix := uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()[:suffixLength]
	if s == "" {
		return suffix
	}
	runes := []rune(s)
	if keep := MaxLength - suffixLength - 1; len(runes) > keep {
		s = strings.TrimRight(string(runes[:keep]), "-")
	}
	return s + "-" + suffix
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxLength {
		return s
	}
	out := string(runes[:MaxLength])
	if i := strings.LastIndexByte(out, '-'); i > len(out)/2 {
		out = out[:i]
	}
	return strings.TrimRight(out, "-")
}

// fold drops combining marks that follow a Latin letter, so "Café" becomes
// "Cafe". Marks of other scripts are part of their letters and stay.
func fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var base rune
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if unicode.Is(unicode.Latin, base) {
				continue
			}
		} else {
			base = r
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}
