package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// StoreKind selects the vector store backend.
type StoreKind string

// Available vector stores.
const (
	// StorePGVector is PostgreSQL with the pgvector extension.
	StorePGVector StoreKind = "pgvector"

	// StoreMemory is a process-local store; nothing survives exit.
	StoreMemory StoreKind = "memory"
)

// IsValid returns true if the store kind is recognised.
func (k StoreKind) IsValid() bool {
	return k == StorePGVector || k == StoreMemory
}

// ChunkingSettings configures the sentence-aware chunker.
type ChunkingSettings struct {
	// ChunkSize is the target window W in words.
	ChunkSize int

	// Overlap is the approximate overlap O in words.
	Overlap int

	// MinWords is the minimum valid fragment size M in words.
	MinWords int

	// MinSentenceChars merges shorter sentences into the next one.
	MinSentenceChars int

	// Sections splits text on data sheet section headers before windowing.
	Sections bool

	// SectionHeaders is an extra regular expression of header lines,
	// added to the built-in ones.
	SectionHeaders string

	// SourcePrefix prepends "[Source: name] " to every fragment when true.
	SourcePrefix bool
}

// ExtractionSettings configures the page text cascade.
type ExtractionSettings struct {
	// QualityThreshold is the minimum score for a strategy to be accepted.
	QualityThreshold float64

	// OCREnabled allows the OCR strategy to run.
	OCREnabled bool

	// OCRLanguages lists tesseract languages, joined by "+".
	OCRLanguages string

	// OCRDPI is the render resolution for OCR.
	OCRDPI int

	// MinDocumentChars is the minimum extracted text for a document to be chunked.
	MinDocumentChars int
}

// IngestSettings configures the orchestrator.
type IngestSettings struct {
	// Workers is the size of the document worker pool.
	Workers int

	// BatchSize is the number of fragments per embedding call.
	BatchSize int

	// ExtractTimeout bounds extraction of one document.
	ExtractTimeout time.Duration

	// EmbedTimeout bounds one embedding batch call.
	EmbedTimeout time.Duration

	// StoreTimeout bounds the storage transaction of one document.
	StoreTimeout time.Duration

	// FailedReport is the path of the failed-document report written by the CLI.
	FailedReport string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI and Gemini).
	APIKey string

	// Dimensions is the vector size; must match the store column.
	Dimensions int

	// RequestsPerSecond throttles calls; zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// DatabaseSettings holds PostgreSQL connection settings.
type DatabaseSettings struct {
	// URL, when set, overrides the individual fields.
	URL      string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// DSN returns the connection string.
func (d DatabaseSettings) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode)
}

// S3Settings configures the S3 document source.
type S3Settings struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// SearchSettings holds query behaviour configuration.
type SearchSettings struct {
	// TopK is the default number of results.
	TopK int

	// MaxDisplayChars truncates fragment text in rendered results.
	MaxDisplayChars int
}

// Settings holds all application settings. It is built once at startup
// and passed by value into each component.
type Settings struct {
	Chunking   ChunkingSettings
	Extraction ExtractionSettings
	Ingest     IngestSettings
	Embedding  EmbeddingSettings
	Store      StoreKind
	Database   DatabaseSettings
	S3         S3Settings
	Search     SearchSettings
}

// DefaultSettings returns settings with the data sheet defaults.
func DefaultSettings() Settings {
	return Settings{
		Chunking: ChunkingSettings{
			ChunkSize:        300,
			Overlap:          50,
			MinWords:         30,
			MinSentenceChars: 20,
			Sections:         true,
			SourcePrefix:     true,
		},
		Extraction: ExtractionSettings{
			QualityThreshold: 0.5,
			OCREnabled:       true,
			OCRLanguages:     "fra+eng",
			OCRDPI:           144,
			MinDocumentChars: 50,
		},
		Ingest: IngestSettings{
			Workers:        0, // resolved from CPU count
			BatchSize:      64,
			ExtractTimeout: 5 * time.Minute,
			EmbedTimeout:   2 * time.Minute,
			StoreTimeout:   time.Minute,
			FailedReport:   "failed_documents.txt",
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      "all-minilm",
			Dimensions: 384,
		},
		Store: StorePGVector,
		Database: DatabaseSettings{
			Host:     "localhost",
			Port:     5433,
			Name:     "bakery_rag",
			User:     "postgres",
			Password: "secret",
		},
		S3: S3Settings{
			Region: "us-east-2",
		},
		Search: SearchSettings{
			TopK:            3,
			MaxDisplayChars: 500,
		},
	}
}

// Validate checks the invariants components rely on.
func (s Settings) Validate() error {
	var errs []error
	c := s.Chunking
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("overlap must be in [0, chunk size), got %d", c.Overlap))
	}
	if c.MinWords < 0 || c.MinWords > c.ChunkSize {
		errs = append(errs, fmt.Errorf("min words must be in [0, chunk size], got %d", c.MinWords))
	}
	if c.SectionHeaders != "" {
		if _, err := regexp.Compile(c.SectionHeaders); err != nil {
			errs = append(errs, fmt.Errorf("section headers: %w", err))
		}
	}
	if t := s.Extraction.QualityThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("quality threshold must be in [0, 1], got %g", t))
	}
	if s.Ingest.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", s.Ingest.BatchSize))
	}
	if s.Ingest.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", s.Ingest.Workers))
	}
	if s.Search.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive, got %d", s.Search.TopK))
	}
	if s.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimensions must be positive, got %d", s.Embedding.Dimensions))
	}
	if s.Store != "" && !s.Store.IsValid() {
		errs = append(errs, fmt.Errorf("unknown store %q", s.Store))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"all-minilm":        384,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004":   768,
		"gemini-embedding-001": 3072,
	}
}
