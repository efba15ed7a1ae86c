package parser

import (
	"encoding/xml"
	"strings"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/identifier"
)

// teiDocument is a hand-rolled decoder for the subset of the GROBID TEI
// header schema this client needs. It is intentionally narrow: grobidclient
// exposes only the raw response bytes (github.com/miku/grobidclient/tei
// wraps a much larger surface than this project needs, and its internal
// struct shapes are not something worth depending on sight-unseen), so this
// package decodes the header fields directly against the documented TEI P5
// shape GROBID emits.
type teiDocument struct {
	XMLName    xml.Name       `xml:"TEI"`
	TeiHeader  teiHeader      `xml:"teiHeader"`
}

type teiHeader struct {
	FileDesc    teiFileDesc    `xml:"fileDesc"`
	ProfileDesc teiProfileDesc `xml:"profileDesc"`
}

type teiFileDesc struct {
	TitleStmt  teiTitleStmt  `xml:"titleStmt"`
	SourceDesc teiSourceDesc `xml:"sourceDesc"`
}

type teiTitleStmt struct {
	Title string `xml:"title"`
}

type teiSourceDesc struct {
	BiblStruct teiBiblStruct `xml:"biblStruct"`
}

type teiBiblStruct struct {
	Analytic teiAnalytic `xml:"analytic"`
	Monogr   teiMonogr   `xml:"monogr"`
}

type teiAnalytic struct {
	Title   string      `xml:"title"`
	Authors []teiAuthor `xml:"author"`
	Idnos   []teiIdno   `xml:"idno"`
}

type teiAuthor struct {
	PersName teiPersName `xml:"persName"`
}

type teiPersName struct {
	Forenames []string `xml:"forename"`
	Surname   string   `xml:"surname"`
}

type teiIdno struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type teiMonogr struct {
	Title   string     `xml:"title"`
	Imprint teiImprint `xml:"imprint"`
}

type teiImprint struct {
	BiblScopes []teiBiblScope `xml:"biblScope"`
	Date       teiDate        `xml:"date"`
	Publisher  string         `xml:"publisher"`
}

type teiBiblScope struct {
	Unit string `xml:"unit,attr"`
	From string `xml:"from,attr"`
	To   string `xml:"to,attr"`
	Text string `xml:",chardata"`
}

type teiDate struct {
	Type string `xml:"type,attr"`
	When string `xml:"when,attr"`
}

type teiProfileDesc struct {
	Abstract teiAbstract `xml:"abstract"`
}

type teiAbstract struct {
	Paragraphs []string `xml:"p"`
}

func parseTEI(body []byte) (*teiDocument, error) {
	var doc teiDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// toBibliographic maps the decoded TEI header onto the neutral schema and
// reports any DOI found in the analytic idno block separately, since the
// neutral schema carries identifiers on the record rather than on
// Bibliographic itself. It never returns an error: a sparse or malformed
// document just yields a sparse record, letting the cascade continue past
// this stage.
func (d *teiDocument) toBibliographic() (bib *scanbib.Bibliographic, doi string) {
	bib = &scanbib.Bibliographic{
		DocumentType: scanbib.DocumentTypeJournalArticle,
		Keywords:     make(map[string]struct{}),
	}
	analytic := d.TeiHeader.FileDesc.SourceDesc.BiblStruct.Analytic
	monogr := d.TeiHeader.FileDesc.SourceDesc.BiblStruct.Monogr

	bib.Title = strings.TrimSpace(analytic.Title)
	if bib.Title == "" {
		bib.Title = strings.TrimSpace(d.TeiHeader.FileDesc.TitleStmt.Title)
	}
	bib.Container = strings.TrimSpace(monogr.Title)
	bib.Publisher = strings.TrimSpace(monogr.Imprint.Publisher)

	for _, a := range analytic.Authors {
		given := strings.TrimSpace(strings.Join(a.PersName.Forenames, " "))
		family := strings.TrimSpace(a.PersName.Surname)
		if given == "" && family == "" {
			continue
		}
		author, err := scanbib.NewAuthor(given, family, "")
		if err != nil {
			continue
		}
		bib.Authors = append(bib.Authors, author)
	}

	for _, idno := range analytic.Idnos {
		if strings.EqualFold(idno.Type, "DOI") {
			normalized := identifier.NormalizeDOI(idno.Value)
			if identifier.ValidateDOI(normalized) {
				doi = normalized
			}
		}
	}

	for _, bs := range monogr.Imprint.BiblScopes {
		switch strings.ToLower(bs.Unit) {
		case "volume":
			bib.Volume = strings.TrimSpace(bs.Text)
		case "issue":
			bib.Issue = strings.TrimSpace(bs.Text)
		case "page":
			if bs.From != "" || bs.To != "" {
				bib.Pages = bs.From + "-" + bs.To
			} else {
				bib.Pages = strings.TrimSpace(bs.Text)
			}
		}
	}

	if y, ok := identifier.ParseYear(monogr.Imprint.Date.When); ok {
		bib.Year = &y
	}

	if len(d.TeiHeader.ProfileDesc.Abstract.Paragraphs) > 0 {
		bib.Abstract = strings.TrimSpace(strings.Join(d.TeiHeader.ProfileDesc.Abstract.Paragraphs, "\n"))
	}
	return bib, doi
}
