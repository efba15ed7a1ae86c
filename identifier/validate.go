package identifier

import (
	"regexp"
	"strconv"
	"strings"
)

var doiURLPrefix = regexp.MustCompile(`(?i)^\s*(https?://(dx\.)?doi\.org/|doi:\s*)`)

// NormalizeDOI strips known URL/"doi:" prefixes and surrounding whitespace,
// lowercases only the "10.NNNN" registrant-prefix segment (case-insensitive
// per the DOI spec) and preserves the suffix verbatim (case-sensitive). This
// is the single canonical form used across every catalog client and
// downstream equality check.
func NormalizeDOI(s string) string {
	s = strings.TrimSpace(s)
	s = doiURLPrefix.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	idx := strings.Index(s, "/")
	if idx < 0 {
		return strings.ToLower(s)
	}
	prefix := strings.ToLower(s[:idx])
	suffix := s[idx:]
	return prefix + suffix
}

var doiShapeRx = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// ValidateDOI reports whether s (already normalized, or not) has the basic
// "10.<registrant>/<suffix>" shape required by the DOI spec.
func ValidateDOI(s string) bool {
	return doiShapeRx.MatchString(NormalizeDOI(s))
}

// NormalizeISBN strips dashes/spaces, producing the canonical dashless form.
func NormalizeISBN(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '-', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// ValidateISBN10 checks the mod-11 checksum of a 10-character ISBN (dashes
// already stripped).
func ValidateISBN10(s string) bool {
	s = NormalizeISBN(s)
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		sum += (10 - i) * int(s[i]-'0')
	}
	last := s[9]
	var lastVal int
	switch {
	case last == 'X':
		lastVal = 10
	case last >= '0' && last <= '9':
		lastVal = int(last - '0')
	default:
		return false
	}
	sum += lastVal
	return sum%11 == 0
}

// ValidateISBN13 checks the mod-10 (EAN-13) checksum of a 13-digit ISBN.
func ValidateISBN13(s string) bool {
	s = NormalizeISBN(s)
	if len(s) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		d := int(s[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	return sum%10 == 0
}

// ValidateISSN checks the mod-11 checksum of an ISSN in "NNNN-NNNC" form,
// where C may be the check digit 'X' representing 10.
func ValidateISSN(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 8 {
		return false
	}
	sum := 0
	for i := 0; i < 7; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		sum += (8 - i) * int(s[i]-'0')
	}
	last := s[7]
	var lastVal int
	switch {
	case last == 'X':
		lastVal = 10
	case last >= '0' && last <= '9':
		lastVal = int(last - '0')
	default:
		return false
	}
	sum += lastVal
	return sum%11 == 0
}

var (
	arxivNewShapeRx = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	arxivOldShapeRx = regexp.MustCompile(`(?i)^[a-z][a-z.-]*/\d{7}(v\d+)?$`)
)

// ValidateArxiv checks the format only (no network call) of a candidate
// arXiv identifier, new- or old-style.
func ValidateArxiv(s string) bool {
	s = strings.TrimSpace(s)
	return arxivNewShapeRx.MatchString(s) || arxivOldShapeRx.MatchString(s)
}

// ParseYear is a small helper shared by catalog clients: it extracts a
// plausible 4-digit year from a free-form date string (e.g. "2021-03-15",
// "2021", "March 2021").
func ParseYear(s string) (int, bool) {
	rx := regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)
	m := rx.FindString(s)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}
