// Package identifier implements the regex-based identifier extraction (C1)
// and checksum validation/normalization (C2) stages of the extraction
// cascade: DOI, ISBN, ISSN, arXiv, JSTOR and generic URL recognition from
// OCR'd or PDF-text-layer free text.
package identifier

import (
	"regexp"
	"sort"
	"strings"

	"mvdan.cc/xurls/v2"
)

// Match pairs an extracted value with the textual context it was found in,
// for diagnostics.
type Match struct {
	Value   string
	Context string
}

// Extracted groups every identifier class found in a piece of text.
type Extracted struct {
	DOIs    []Match
	ISBNs   []Match
	ISSNs   []Match
	Arxivs  []Match
	Jstors  []Match
	URLs    []Match
}

const contextWindow = 30

var (
	// doiRx accepts OCR-substituted "DOI:" prefixes: the letters before the
	// colon may be "DO" followed by one of I/1/!/L/l, within 0-1 whitespace
	// of the colon. The DOI body itself is the standard 10.<digits>/<suffix>
	// form, terminated at the first whitespace/paren/quote.
	doiRx = regexp.MustCompile(`(?i)do[i1!l]\s?:?\s*(10\.\d{4,9}/[^\s()<>"']+)`)
	// bareDoiRx matches a DOI with no "DOI:" label at all, e.g. inside a URL
	// or bare in text.
	bareDoiRx = regexp.MustCompile(`\b(10\.\d{4,9}/[^\s()<>"']+)\b`)

	isbnRx = regexp.MustCompile(`\b(?:97[89][-\s]?)?(?:\d[-\s]?){9}[\dXx]\b`)
	issnRx = regexp.MustCompile(`\b(\d{4})-(\d{3}[\dXx])\b`)

	arxivNewRx = regexp.MustCompile(`\b(\d{4}\.\d{4,5})(v\d+)?\b`)
	arxivOldRx = regexp.MustCompile(`(?i)\b([a-z][a-z.-]*)/(\d{7})(v\d+)?\b`)

	jstorRx = regexp.MustCompile(`(?i)https?://(?:www\.)?jstor\.org/stable/(\d+)`)

	arxivOldSubjects = map[string]bool{
		"cs": true, "math": true, "physics": true, "astro-ph": true,
		"cond-mat": true, "gr-qc": true, "hep-ex": true, "hep-lat": true,
		"hep-ph": true, "hep-th": true, "nucl-ex": true, "nucl-th": true,
		"quant-ph": true, "q-bio": true, "q-fin": true, "stat": true,
		"nlin": true, "econ": true, "eess": true,
	}

	onlineMarkers = regexp.MustCompile(`(?i)online|electronic|e-issn|eissn`)
	printMarkers  = regexp.MustCompile(`(?i)\bprint\b|\bpaper\b|p-issn|pissn`)
)

func context(text string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

// dedupe preserves first-occurrence order while dropping later duplicates
// of the same value.
func dedupe(matches []Match) []Match {
	seen := make(map[string]bool, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if seen[m.Value] {
			continue
		}
		seen[m.Value] = true
		out = append(out, m)
	}
	return out
}

func cleanTrailingPunct(s string) string {
	return strings.TrimRight(s, ".,;:!?)]}")
}

// ExtractAll scans text and returns every recognized identifier class.
func ExtractAll(text string) Extracted {
	return Extracted{
		DOIs:   extractDOIs(text),
		ISBNs:  extractISBNs(text),
		ISSNs:  extractISSNs(text),
		Arxivs: extractArxivs(text),
		Jstors: extractJstors(text),
		URLs:   extractURLs(text),
	}
}

// ExtractFirstPage is identical to ExtractAll but constrained to the first
// maxPages pages of text, where pages are assumed to be separated by the
// form-feed character \f (the convention used by pdftotext -layout).
func ExtractFirstPage(text string, maxPages int) Extracted {
	if maxPages <= 0 {
		return ExtractAll(text)
	}
	pages := strings.Split(text, "\f")
	if len(pages) > maxPages {
		pages = pages[:maxPages]
	}
	return ExtractAll(strings.Join(pages, "\f"))
}

func extractDOIs(text string) []Match {
	var out []Match
	for _, loc := range doiRx.FindAllStringSubmatchIndex(text, -1) {
		val := cleanTrailingPunct(text[loc[2]:loc[3]])
		out = append(out, Match{Value: val, Context: context(text, loc[0], loc[1])})
	}
	// Also accept bare DOIs without an OCR'd "DOI:" label at all (e.g.
	// appearing in a URL like doi.org/10.1/x, or standalone).
	for _, loc := range bareDoiRx.FindAllStringSubmatchIndex(text, -1) {
		val := cleanTrailingPunct(text[loc[2]:loc[3]])
		out = append(out, Match{Value: val, Context: context(text, loc[0], loc[1])})
	}
	return dedupe(out)
}

func extractISBNs(text string) []Match {
	var out []Match
	for _, loc := range isbnRx.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		canon := NormalizeISBN(raw)
		if ValidateISBN10(canon) || ValidateISBN13(canon) {
			out = append(out, Match{Value: canon, Context: context(text, loc[0], loc[1])})
		}
	}
	return dedupe(out)
}

func extractISSNs(text string) []Match {
	type candidate struct {
		value string
		pos   int
		end   int
		kind  string // "online", "print", ""
	}
	var candidates []candidate
	for _, loc := range issnRx.FindAllStringSubmatchIndex(text, -1) {
		val := text[loc[0]:loc[1]]
		if !ValidateISSN(val) {
			continue
		}
		windowEnd := loc[1] + contextWindow
		if windowEnd > len(text) {
			windowEnd = len(text)
		}
		after := text[loc[1]:windowEnd]
		kind := classifyISSNWindow(after)
		candidates = append(candidates, candidate{value: val, pos: loc[0], end: loc[1], kind: kind})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		oi, oj := candidates[i].kind == "online", candidates[j].kind == "online"
		if oi != oj {
			return oi
		}
		return candidates[i].pos < candidates[j].pos
	})
	var out []Match
	for _, c := range candidates {
		out = append(out, Match{Value: c.value, Context: context(text, c.pos, c.end)})
	}
	return dedupe(out)
}

// classifyISSNWindow looks at the text following an ISSN match and decides
// whether it is the online or print form, per spec §4.1's tie-break rule:
// whichever marker appears closer within the window wins.
func classifyISSNWindow(after string) string {
	onlineLoc := onlineMarkers.FindStringIndex(after)
	printLoc := printMarkers.FindStringIndex(after)
	switch {
	case onlineLoc == nil && printLoc == nil:
		return ""
	case onlineLoc == nil:
		return "print"
	case printLoc == nil:
		return "online"
	case onlineLoc[0] <= printLoc[0]:
		return "online"
	default:
		return "print"
	}
}

func extractArxivs(text string) []Match {
	var out []Match
	for _, loc := range arxivNewRx.FindAllStringSubmatchIndex(text, -1) {
		val := text[loc[0]:loc[1]]
		out = append(out, Match{Value: val, Context: context(text, loc[0], loc[1])})
	}
	for _, loc := range arxivOldRx.FindAllStringSubmatchIndex(text, -1) {
		subject := strings.ToLower(text[loc[2]:loc[3]])
		if !arxivOldSubjects[subject] {
			continue
		}
		winLo := loc[0] - 20
		if winLo < 0 {
			winLo = 0
		}
		winHi := loc[1] + 20
		if winHi > len(text) {
			winHi = len(text)
		}
		if !strings.Contains(strings.ToLower(text[winLo:winHi]), "arxiv") {
			continue
		}
		val := text[loc[0]:loc[1]]
		out = append(out, Match{Value: val, Context: context(text, loc[0], loc[1])})
	}
	return dedupe(out)
}

func extractJstors(text string) []Match {
	var out []Match
	for _, loc := range jstorRx.FindAllStringSubmatchIndex(text, -1) {
		val := text[loc[2]:loc[3]]
		out = append(out, Match{Value: val, Context: context(text, loc[0], loc[1])})
	}
	return dedupe(out)
}

// extractURLs returns every http(s) URL except JSTOR stable-item links,
// which are represented as a dedicated JSTOR identifier instead.
func extractURLs(text string) []Match {
	rx := xurls.Strict()
	var out []Match
	for _, loc := range rx.FindAllStringIndex(text, -1) {
		u := strings.TrimSpace(text[loc[0]:loc[1]])
		u = strings.ReplaceAll(u, "​", "")
		if jstorRx.MatchString(u) {
			continue
		}
		out = append(out, Match{Value: u, Context: context(text, loc[0], loc[1])})
	}
	return dedupe(out)
}
