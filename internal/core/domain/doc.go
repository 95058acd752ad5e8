// Package domain defines the core business entities for fiches.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A discovered data sheet with a stable identity
//   - PageExtractionResult: The selected text of one page and how it was obtained
//   - Fragment: An embeddable, sentence-aligned unit of document text
//   - StoredRecord: A fragment paired with its vector at the storage boundary
//   - Summary: The outcome of one ingestion run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
