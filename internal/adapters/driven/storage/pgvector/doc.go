// Package pgvector provides the PostgreSQL vector store.
//
// Fragments live in a single embeddings table with a VECTOR column sized to
// the embedding model. An HNSW index on cosine distance serves top-k queries,
// and a unique index on (id_document, sequence_index) backs upserts.
//
// The table and indexes are created on first connection from the embedded
// scripts/bootstrap.sql.
package pgvector
