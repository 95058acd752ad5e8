// Package normalisers provides PageTextSource implementations for the
// document formats fiches ingests. Each source knows how to turn the bytes of
// one MIME type into per-page text.
//
// Sources are registered with the Registry at startup.
package normalisers
