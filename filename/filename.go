// Package filename implements the deterministic filename generator (C10).
package filename

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jmoore/scanbib"
)

const (
	titleSlugWordCount = 6
	titleSlugByteBudget = 80
)

// asciiFold strips diacritics by decomposing to NFD and dropping combining
// marks, then recomposing to NFC — the standard way to get an ASCII-ish
// rendering of a Unicode name without hand-rolling a transliteration table.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldASCII(s string) string {
	out, _, err := transform.String(asciiFold, s)
	if err != nil {
		return s
	}
	return out
}

// Options controls forbidden-output handling.
type Options struct {
	// AllowUnknownAuthor permits the literal "Unknown_Author" primary
	// segment; spec.md §4.10 forbids it unless the user has explicitly
	// accepted a warning at the approval step.
	AllowUnknownAuthor bool
	// Scanned marks the source as a scan (vs. born-digital), appending
	// "_scan" before the extension.
	Scanned bool
}

// ErrUnknownAuthorForbidden is returned when no author is available and
// the caller has not set AllowUnknownAuthor.
var ErrUnknownAuthorForbidden = fmt.Errorf("filename: Unknown_Author requires explicit user acceptance")

// Generate produces the deterministic "primary_year_title_slug[_scan].pdf"
// filename for a bibliographic record.
func Generate(bib scanbib.Bibliographic, opts Options) (string, error) {
	primary := primarySegment(bib.Authors)
	if primary == "Unknown_Author" && !opts.AllowUnknownAuthor {
		return "", ErrUnknownAuthorForbidden
	}

	year := "Unknown"
	if bib.Year != nil {
		year = fmt.Sprintf("%d", *bib.Year)
	}

	slug := titleSlug(bib.Title)

	suffix := ""
	if opts.Scanned {
		suffix = "_scan"
	}
	return fmt.Sprintf("%s_%s_%s%s.pdf", primary, year, slug, suffix), nil
}

// primarySegment implements Family1[_Family2][_etal]: two authors keep
// both family names, three or more collapse to "_etal", and a record with
// no usable family-like name at all falls back to the forbidden-by-default
// "Unknown_Author" sentinel.
func primarySegment(authors []scanbib.Author) string {
	var families []string
	for _, a := range authors {
		f := a.FamilyOrLiteral()
		if f == "" {
			continue
		}
		families = append(families, sanitizeNameSegment(f))
	}
	switch {
	case len(families) == 0:
		return "Unknown_Author"
	case len(families) == 1:
		return families[0]
	case len(families) == 2:
		return families[0] + "_" + families[1]
	default:
		return families[0] + "_etal"
	}
}

func sanitizeNameSegment(s string) string {
	s = foldASCII(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

var significantWordStop = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "for": {},
	"and": {}, "or": {}, "to": {}, "with": {}, "from": {}, "by": {}, "at": {},
}

// titleSlug implements "first 6 significant title words, ASCII-folded,
// non-alphanumeric -> _, collapsed, Title_Case_Underscored", truncated at a
// byte budget.
func titleSlug(title string) string {
	words := strings.Fields(foldASCII(title))
	var significant []string
	for _, w := range words {
		cleaned := nonAlnumToUnderscore(w)
		cleaned = strings.Trim(cleaned, "_")
		if cleaned == "" {
			continue
		}
		if _, stop := significantWordStop[strings.ToLower(cleaned)]; stop {
			continue
		}
		significant = append(significant, titleCaseWord(cleaned))
		if len(significant) == titleSlugWordCount {
			break
		}
	}
	slug := strings.Join(significant, "_")
	return truncateBytes(slug, titleSlugByteBudget)
}

func nonAlnumToUnderscore(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func titleCaseWord(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(s)
	rs[0] = unicode.ToUpper(rs[0])
	for i := 1; i < len(rs); i++ {
		rs[i] = unicode.ToLower(rs[i])
	}
	return string(rs)
}

func truncateBytes(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	b := []byte(s)[:budget]
	// avoid splitting a multi-byte rune at the boundary.
	for len(b) > 0 && (b[len(b)-1]&0xC0) == 0x80 {
		b = b[:len(b)-1]
	}
	return strings.TrimRight(string(b), "_")
}
