// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for ingestion to function:
//
//   - DocumentSource: Lists and fetches documents (filesystem, S3)
//   - PageTextSource: Produces per-page text for one document
//   - PostProcessorPipeline: Turns flattened text into fragments
//   - EmbeddingService: Generates unit-length vectors in input order
//   - VectorStore: Stores fragments and answers top-k similarity queries
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - RunStore: Persists run history. Without it, `status` has nothing to show.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or extractor package
package driven
