// Package cascade implements the metadata extraction pipeline (C6): the
// GREP-first, short-circuit cascade across C1 identifier extraction, C3
// catalog clients, C4 structured parser, and C5 AI oracle.
package cascade

import (
	"context"
	"time"

	"github.com/jmoore/scanbib"
	"github.com/jmoore/scanbib/catalog"
	"github.com/jmoore/scanbib/identifier"
	"github.com/jmoore/scanbib/oracle"
	"github.com/jmoore/scanbib/parser"
)

// catalogPriority is the fixed identifier-class lookup order spec.md §4.6
// step 3 requires.
var catalogPriority = []scanbib.IdentifierKind{
	scanbib.IdentifierDOI,
	scanbib.IdentifierArxiv,
	scanbib.IdentifierISBN,
}

// Pipeline wires together every cascade stage. Catalogs maps an identifier
// kind to the client that serves it; a kind with no registered client is
// skipped without being treated as a failure.
type Pipeline struct {
	MaxPages int
	Catalogs map[scanbib.IdentifierKind]catalog.Client
	Parser   *parser.Client
	Oracle   *oracle.Client
}

// Process runs the full cascade against a single PDF and returns the
// extraction result. Ordinary stage failures are non-fatal and recorded as
// warnings; only a failure to extract the source's text stops the cascade,
// and that error is reported in the result's Err field.
func (p *Pipeline) Process(ctx context.Context, pdfPath, languageHint string) *scanbib.CascadeResult {
	start := time.Now()
	record := scanbib.NewPaperRecord(pdfPath, languageHint)
	result := &scanbib.CascadeResult{Record: record}

	text, err := extractFirstNPagesText(ctx, pdfPath, p.MaxPages)
	if err != nil {
		record.AddWarning("text extraction failed: %v", err)
		result.Err = err
		record.ProcessingTimeSeconds = time.Since(start).Seconds()
		return result
	}

	extracted := identifier.ExtractAll(text)
	applyExtracted(record, extracted)
	record.DropInvalidIdentifiers()
	result.StagesTried = append(result.StagesTried, scanbib.StageRegex)

	// Stage: catalog lookups in fixed priority order.
	for _, kind := range catalogPriority {
		id, ok := record.Identifier(kind)
		if !ok || !id.Valid {
			continue
		}
		client, ok := p.Catalogs[kind]
		if !ok {
			continue
		}
		result.StagesTried = append(result.StagesTried, scanbib.StageCatalog)
		bib, err := client.GetByIdentifier(ctx, id.Value)
		if err != nil {
			record.AddWarning("catalog lookup for %s failed: %v", kind, err)
			continue
		}
		if bib != nil {
			mergeBibliographic(record, *bib, scanbib.StageCatalog)
			resolveDocumentType(record, extracted, nil, nil)
			result.Success = true
			result.FinalStage = scanbib.StageCatalog
			record.ProcessingTimeSeconds = time.Since(start).Seconds()
			return result
		}
	}

	// Stage: structured parser.
	if p.Parser != nil {
		result.StagesTried = append(result.StagesTried, scanbib.StageParser)
		bib, doi, err := p.Parser.Extract(ctx, pdfPath)
		if err != nil {
			record.AddWarning("parser stage failed: %v", err)
		}
		if bib != nil && (bib.Title != "" || len(bib.Authors) > 0) {
			mergeBibliographic(record, *bib, scanbib.StageParser)
			if doi != "" {
				record.AddIdentifier(scanbib.Identifier{Kind: scanbib.IdentifierDOI, Value: doi, Provenance: scanbib.StageParser, Valid: true})
			}
			resolveDocumentType(record, extracted, &bib.DocumentType, nil)
			result.Success = true
			result.FinalStage = scanbib.StageParser
			record.ProcessingTimeSeconds = time.Since(start).Seconds()
			return result
		}
	}

	// Stage: AI oracle, given the full first-N-page text plus any fragments
	// recovered so far as hints.
	if p.Oracle != nil {
		result.StagesTried = append(result.StagesTried, scanbib.StageOracle)
		hintType := record.Bibliographic.DocumentType
		var hintPtr *scanbib.DocumentType
		if hintType != scanbib.DocumentTypeUnknown {
			hintPtr = &hintType
		}
		bib, ids, warnings, err := p.Oracle.ExtractFromText(ctx, text, languageHint, hintPtr)
		for _, w := range warnings {
			record.AddWarning("%s", w)
		}
		if err != nil {
			record.AddWarning("oracle stage failed: %v", err)
		}
		if bib != nil {
			mergeBibliographic(record, *bib, scanbib.StageOracle)
			for _, id := range ids {
				record.AddIdentifier(id)
			}
			docType := bib.DocumentType
			resolveDocumentType(record, extracted, nil, &docType)
			result.Success = true
			result.FinalStage = scanbib.StageOracle
			record.ProcessingTimeSeconds = time.Since(start).Seconds()
			return result
		}
	}

	resolveDocumentType(record, extracted, nil, nil)
	result.Success = false
	record.ProcessingTimeSeconds = time.Since(start).Seconds()
	return result
}

// applyExtracted adds every regex-extracted identifier to the record,
// validating each against C2 before setting its Valid flag.
func applyExtracted(record *scanbib.PaperRecord, ex identifier.Extracted) {
	for _, m := range ex.DOIs {
		norm := identifier.NormalizeDOI(m.Value)
		record.AddIdentifier(scanbib.Identifier{Kind: scanbib.IdentifierDOI, Value: norm, Provenance: scanbib.StageRegex, Valid: identifier.ValidateDOI(norm)})
	}
	for _, m := range ex.ISBNs {
		record.AddIdentifier(scanbib.Identifier{Kind: scanbib.IdentifierISBN, Value: m.Value, Provenance: scanbib.StageRegex, Valid: identifier.ValidateISBN10(m.Value) || identifier.ValidateISBN13(m.Value)})
	}
	for _, m := range ex.ISSNs {
		record.AddIdentifier(scanbib.Identifier{Kind: scanbib.IdentifierISSN, Value: m.Value, Provenance: scanbib.StageRegex, Valid: identifier.ValidateISSN(m.Value)})
	}
	for _, m := range ex.Arxivs {
		record.AddIdentifier(scanbib.Identifier{Kind: scanbib.IdentifierArxiv, Value: m.Value, Provenance: scanbib.StageRegex, Valid: identifier.ValidateArxiv(m.Value)})
	}
	for _, m := range ex.Jstors {
		record.AddIdentifier(scanbib.Identifier{Kind: scanbib.IdentifierJSTOR, Value: m.Value, Provenance: scanbib.StageRegex, Valid: true})
	}
	for _, m := range ex.URLs {
		record.AddIdentifier(scanbib.Identifier{Kind: scanbib.IdentifierURL, Value: m.Value, Provenance: scanbib.StageRegex, Valid: true})
	}
}

// mergeBibliographic layers a stage's findings onto the record: a field
// that is still empty takes the new value and SetField records the stage's
// provenance for it; a field that already holds a value (from an earlier
// stage or a user edit) is left as it is. Year conflicts are retained in
// YearConflicts rather than silently overwritten.
func mergeBibliographic(record *scanbib.PaperRecord, bib scanbib.Bibliographic, stage scanbib.Stage) {
	b := &record.Bibliographic
	if b.Title == "" && bib.Title != "" {
		b.Title = bib.Title
		record.SetField("bibliographic.title", stage)
	}
	if len(b.Authors) == 0 && len(bib.Authors) > 0 {
		b.Authors = bib.Authors
		record.SetField("bibliographic.authors", stage)
	}
	if bib.Year != nil {
		record.YearConflicts[stage] = *bib.Year
		if b.Year == nil {
			y := *bib.Year
			b.Year = &y
			record.SetField("bibliographic.year", stage)
		}
	}
	if b.Container == "" && bib.Container != "" {
		b.Container = bib.Container
		record.SetField("bibliographic.container", stage)
	}
	if b.Volume == "" && bib.Volume != "" {
		b.Volume = bib.Volume
	}
	if b.Issue == "" && bib.Issue != "" {
		b.Issue = bib.Issue
	}
	if b.Pages == "" && bib.Pages != "" {
		b.Pages = bib.Pages
	}
	if b.Publisher == "" && bib.Publisher != "" {
		b.Publisher = bib.Publisher
	}
	if b.Abstract == "" && bib.Abstract != "" {
		b.Abstract = bib.Abstract
		record.SetField("bibliographic.abstract", stage)
	}
	if b.Language == "" && bib.Language != "" {
		b.Language = bib.Language
	}
	for k := range bib.Keywords {
		b.Keywords[k] = struct{}{}
	}
	if bib.DocumentType != "" && bib.DocumentType != scanbib.DocumentTypeUnknown && b.DocumentType == scanbib.DocumentTypeUnknown {
		b.DocumentType = bib.DocumentType
	}
}
