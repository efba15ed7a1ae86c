// Package scanbib defines the shared bibliographic data model used across
// the ingestion pipeline: the paper record produced by the extraction
// cascade, its identifiers and authors, and the provenance bookkeeping that
// tracks which stage produced which field.
//
// Subpackages implement the pipeline stages: identifier (regex extraction
// and validation), catalog (DOI/arXiv/ISBN registry clients), parser
// (GROBID client), oracle (AI fallback), cascade (orchestration), store and
// storeapi (local bibliographic store read/write), placement and filename
// (publications directory handling), watcher (daemon), approval
// (interactive state machine) and validator (author/journal suggestion
// caches).
package scanbib
