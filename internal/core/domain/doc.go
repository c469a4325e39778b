// Package domain contains the core business entities for the
// exemplar-alignment engine: libraries, source documents, chunks,
// embedding records, citations, diagnosis results and build tasks.
// It has no dependencies on infrastructure packages.
package domain
