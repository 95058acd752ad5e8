// Package embedding holds helpers shared by the embedding provider adapters:
// unit normalisation, response validation and a rate-limited circuit breaker
// that wraps any driven.EmbeddingService.
//
// Provider adapters live in the ollama, openai and gemini subpackages.
package embedding
