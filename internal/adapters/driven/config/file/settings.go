package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables already set. Missing files are
// ignored. With no paths, ./.env is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Config file keys.
const (
	KeyChunkSize        = "chunking.size"
	KeyChunkOverlap     = "chunking.overlap"
	KeyChunkMinWords    = "chunking.min_words"
	KeyMinSentenceChars = "chunking.min_sentence_chars"
	KeySections         = "chunking.sections"
	KeySectionHeaders   = "chunking.section_headers"
	KeySourcePrefix     = "chunking.source_prefix"

	KeyQualityThreshold = "extraction.quality_threshold"
	KeyOCREnabled       = "extraction.ocr"
	KeyOCRLanguages     = "extraction.ocr_languages"
	KeyOCRDPI           = "extraction.ocr_dpi"
	KeyMinDocumentChars = "extraction.min_document_chars"

	KeyWorkers        = "ingest.workers"
	KeyBatchSize      = "ingest.batch_size"
	KeyExtractTimeout = "ingest.extract_timeout"
	KeyEmbedTimeout   = "ingest.embed_timeout"
	KeyStoreTimeout   = "ingest.store_timeout"
	KeyFailedReport   = "ingest.failed_report"

	KeyEmbeddingProvider   = "embedding.provider"
	KeyEmbeddingModel      = "embedding.model"
	KeyEmbeddingBaseURL    = "embedding.base_url"
	KeyEmbeddingAPIKey     = "embedding.api_key"
	KeyEmbeddingDimensions = "embedding.dimensions"
	KeyEmbeddingRate       = "embedding.requests_per_second"

	KeyStoreBackend = "store.backend"

	KeyDatabaseURL      = "database.url"
	KeyDatabaseHost     = "database.host"
	KeyDatabasePort     = "database.port"
	KeyDatabaseName     = "database.name"
	KeyDatabaseUser     = "database.user"
	KeyDatabasePassword = "database.password"
	KeyDatabaseSSLMode  = "database.sslmode"

	KeyS3Region    = "s3.region"
	KeyS3Bucket    = "s3.bucket"
	KeyS3AccessKey = "s3.access_key"
	KeyS3SecretKey = "s3.secret_key"

	KeyTopK            = "search.top_k"
	KeyMaxDisplayChars = "search.max_display_chars"
)

// loader accumulates settings while tracking whether the embedding size was
// given explicitly, so a model change can pick up the model's known size.
type loader struct {
	s             domain.Settings
	dimensionsSet bool
}

type setter func(l *loader, v string) error

func intField(dst func(*domain.Settings) *int) setter {
	return func(l *loader, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidSettings, v)
		}
		*dst(&l.s) = n
		return nil
	}
}

func floatField(dst func(*domain.Settings) *float64) setter {
	return func(l *loader, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidSettings, v)
		}
		*dst(&l.s) = f
		return nil
	}
}

func boolField(dst func(*domain.Settings) *bool) setter {
	return func(l *loader, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %q is not a boolean", domain.ErrInvalidSettings, v)
		}
		*dst(&l.s) = b
		return nil
	}
}

func stringField(dst func(*domain.Settings) *string) setter {
	return func(l *loader, v string) error {
		*dst(&l.s) = v
		return nil
	}
}

func durationField(dst func(*domain.Settings) *time.Duration) setter {
	return func(l *loader, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %q is not a duration", domain.ErrInvalidSettings, v)
		}
		*dst(&l.s) = d
		return nil
	}
}

func setProvider(l *loader, v string) error {
	p := domain.AIProvider(strings.ToLower(v))
	if !p.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidSettings, v)
	}
	if p != l.s.Embedding.Provider {
		l.s.Embedding.Provider = p
		l.s.Embedding.Model = ""
	}
	return nil
}

func setDimensions(l *loader, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidSettings, v)
	}
	l.s.Embedding.Dimensions = n
	l.dimensionsSet = true
	return nil
}

func setStore(l *loader, v string) error {
	k := domain.StoreKind(strings.ToLower(v))
	if !k.IsValid() {
		return fmt.Errorf("%w: unknown store %q", domain.ErrInvalidSettings, v)
	}
	l.s.Store = k
	return nil
}

// settingKeys maps config file keys to settings fields, in display order.
var settingKeys = []struct {
	key string
	set setter
}{
	{KeyChunkSize, intField(func(s *domain.Settings) *int { return &s.Chunking.ChunkSize })},
	{KeyChunkOverlap, intField(func(s *domain.Settings) *int { return &s.Chunking.Overlap })},
	{KeyChunkMinWords, intField(func(s *domain.Settings) *int { return &s.Chunking.MinWords })},
	{KeyMinSentenceChars, intField(func(s *domain.Settings) *int { return &s.Chunking.MinSentenceChars })},
	{KeySections, boolField(func(s *domain.Settings) *bool { return &s.Chunking.Sections })},
	{KeySectionHeaders, stringField(func(s *domain.Settings) *string { return &s.Chunking.SectionHeaders })},
	{KeySourcePrefix, boolField(func(s *domain.Settings) *bool { return &s.Chunking.SourcePrefix })},

	{KeyQualityThreshold, floatField(func(s *domain.Settings) *float64 { return &s.Extraction.QualityThreshold })},
	{KeyOCREnabled, boolField(func(s *domain.Settings) *bool { return &s.Extraction.OCREnabled })},
	{KeyOCRLanguages, stringField(func(s *domain.Settings) *string { return &s.Extraction.OCRLanguages })},
	{KeyOCRDPI, intField(func(s *domain.Settings) *int { return &s.Extraction.OCRDPI })},
	{KeyMinDocumentChars, intField(func(s *domain.Settings) *int { return &s.Extraction.MinDocumentChars })},

	{KeyWorkers, intField(func(s *domain.Settings) *int { return &s.Ingest.Workers })},
	{KeyBatchSize, intField(func(s *domain.Settings) *int { return &s.Ingest.BatchSize })},
	{KeyExtractTimeout, durationField(func(s *domain.Settings) *time.Duration { return &s.Ingest.ExtractTimeout })},
	{KeyEmbedTimeout, durationField(func(s *domain.Settings) *time.Duration { return &s.Ingest.EmbedTimeout })},
	{KeyStoreTimeout, durationField(func(s *domain.Settings) *time.Duration { return &s.Ingest.StoreTimeout })},
	{KeyFailedReport, stringField(func(s *domain.Settings) *string { return &s.Ingest.FailedReport })},

	{KeyEmbeddingProvider, setProvider},
	{KeyEmbeddingModel, stringField(func(s *domain.Settings) *string { return &s.Embedding.Model })},
	{KeyEmbeddingBaseURL, stringField(func(s *domain.Settings) *string { return &s.Embedding.BaseURL })},
	{KeyEmbeddingAPIKey, stringField(func(s *domain.Settings) *string { return &s.Embedding.APIKey })},
	{KeyEmbeddingDimensions, setDimensions},
	{KeyEmbeddingRate, floatField(func(s *domain.Settings) *float64 { return &s.Embedding.RequestsPerSecond })},

	{KeyStoreBackend, setStore},

	{KeyDatabaseURL, stringField(func(s *domain.Settings) *string { return &s.Database.URL })},
	{KeyDatabaseHost, stringField(func(s *domain.Settings) *string { return &s.Database.Host })},
	{KeyDatabasePort, intField(func(s *domain.Settings) *int { return &s.Database.Port })},
	{KeyDatabaseName, stringField(func(s *domain.Settings) *string { return &s.Database.Name })},
	{KeyDatabaseUser, stringField(func(s *domain.Settings) *string { return &s.Database.User })},
	{KeyDatabasePassword, stringField(func(s *domain.Settings) *string { return &s.Database.Password })},
	{KeyDatabaseSSLMode, stringField(func(s *domain.Settings) *string { return &s.Database.SSLMode })},

	{KeyS3Region, stringField(func(s *domain.Settings) *string { return &s.S3.Region })},
	{KeyS3Bucket, stringField(func(s *domain.Settings) *string { return &s.S3.Bucket })},
	{KeyS3AccessKey, stringField(func(s *domain.Settings) *string { return &s.S3.AccessKey })},
	{KeyS3SecretKey, stringField(func(s *domain.Settings) *string { return &s.S3.SecretKey })},

	{KeyTopK, intField(func(s *domain.Settings) *int { return &s.Search.TopK })},
	{KeyMaxDisplayChars, intField(func(s *domain.Settings) *int { return &s.Search.MaxDisplayChars })},
}

// envOverrides maps environment variables to config keys.
var envOverrides = []struct {
	name string
	key  string
}{
	{"DATABASE_URL", KeyDatabaseURL},
	{"DB_HOST", KeyDatabaseHost},
	{"DB_PORT", KeyDatabasePort},
	{"DB_NAME", KeyDatabaseName},
	{"DB_USER", KeyDatabaseUser},
	{"DB_PASSWORD", KeyDatabasePassword},

	{"EMBEDDING_PROVIDER", KeyEmbeddingProvider},
	{"EMBEDDING_MODEL", KeyEmbeddingModel},
	{"EMBEDDING_DIM", KeyEmbeddingDimensions},
	{"OLLAMA_HOST", KeyEmbeddingBaseURL},

	{"CHUNK_SIZE", KeyChunkSize},
	{"CHUNK_OVERLAP", KeyChunkOverlap},
	{"MIN_CHUNK_WORDS", KeyChunkMinWords},
	{"BATCH_SIZE", KeyBatchSize},
	{"TOP_K", KeyTopK},

	{"AWS_REGION", KeyS3Region},
	{"AWS_ACCESS_KEY", KeyS3AccessKey},
	{"AWS_SECRET_KEY", KeyS3SecretKey},
	{"S3_BUCKET", KeyS3Bucket},
}

// apiKeyEnv names the variable holding each cloud provider's key.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI: "OPENAI_API_KEY",
	domain.AIProviderGemini: "GEMINI_API_KEY",
}

func findSetter(key string) (setter, bool) {
	for _, k := range settingKeys {
		if k.key == key {
			return k.set, true
		}
	}
	return nil, false
}

// IsKnownKey reports whether key is a recognised config key.
func IsKnownKey(key string) bool {
	_, ok := findSetter(key)
	return ok
}

// KnownKeys returns every recognised config key.
func KnownKeys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// ParseValue converts a command-line string to the type stored for key.
func ParseValue(key, raw string) (any, error) {
	set, ok := findSetter(key)
	if !ok {
		return nil, fmt.Errorf("%w: unknown key %q", domain.ErrInvalidSettings, key)
	}
	l := &loader{s: domain.DefaultSettings()}
	if err := set(l, raw); err != nil {
		return nil, err
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b, nil
	}
	return raw, nil
}

// LoadSettings builds the effective settings: defaults, then the config
// store, then environment variables. The result is validated.
func LoadSettings(store driven.ConfigStore, lookup LookupFunc) (domain.Settings, error) {
	l := &loader{s: domain.DefaultSettings()}

	if store != nil {
		for _, k := range settingKeys {
			v, ok := store.Get(k.key)
			if !ok {
				continue
			}
			if err := k.set(l, fmt.Sprint(v)); err != nil {
				return l.s, fmt.Errorf("%s: %w", k.key, err)
			}
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, e := range envOverrides {
		v, ok := lookup(e.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		set, _ := findSetter(e.key)
		if err := set(l, strings.TrimSpace(v)); err != nil {
			return l.s, fmt.Errorf("%s: %w", e.name, err)
		}
	}
	if name, ok := apiKeyEnv[l.s.Embedding.Provider]; ok {
		if v, ok := lookup(name); ok && v != "" {
			l.s.Embedding.APIKey = v
		}
	}

	if l.s.Embedding.Model == "" {
		l.s.Embedding.Model = domain.DefaultEmbeddingModels()[l.s.Embedding.Provider]
	}
	if !l.dimensionsSet {
		if d, ok := domain.EmbeddingDimensions()[l.s.Embedding.Model]; ok {
			l.s.Embedding.Dimensions = d
		}
	}

	if err := l.s.Validate(); err != nil {
		return l.s, err
	}
	return l.s, nil
}

// Entry is one effective setting for display.
type Entry struct {
	Key   string
	Value string
}

// Entries lists the effective settings with secrets masked.
func Entries(s domain.Settings) []Entry {
	return []Entry{
		{KeyChunkSize, strconv.Itoa(s.Chunking.ChunkSize)},
		{KeyChunkOverlap, strconv.Itoa(s.Chunking.Overlap)},
		{KeyChunkMinWords, strconv.Itoa(s.Chunking.MinWords)},
		{KeyMinSentenceChars, strconv.Itoa(s.Chunking.MinSentenceChars)},
		{KeySections, strconv.FormatBool(s.Chunking.Sections)},
		{KeySectionHeaders, s.Chunking.SectionHeaders},
		{KeySourcePrefix, strconv.FormatBool(s.Chunking.SourcePrefix)},
		{KeyQualityThreshold, strconv.FormatFloat(s.Extraction.QualityThreshold, 'g', -1, 64)},
		{KeyOCREnabled, strconv.FormatBool(s.Extraction.OCREnabled)},
		{KeyOCRLanguages, s.Extraction.OCRLanguages},
		{KeyOCRDPI, strconv.Itoa(s.Extraction.OCRDPI)},
		{KeyMinDocumentChars, strconv.Itoa(s.Extraction.MinDocumentChars)},
		{KeyWorkers, workersLabel(s.Ingest.Workers)},
		{KeyBatchSize, strconv.Itoa(s.Ingest.BatchSize)},
		{KeyExtractTimeout, s.Ingest.ExtractTimeout.String()},
		{KeyEmbedTimeout, s.Ingest.EmbedTimeout.String()},
		{KeyStoreTimeout, s.Ingest.StoreTimeout.String()},
		{KeyFailedReport, s.Ingest.FailedReport},
		{KeyEmbeddingProvider, s.Embedding.Provider.String()},
		{KeyEmbeddingModel, s.Embedding.Model},
		{KeyEmbeddingBaseURL, s.Embedding.BaseURL},
		{KeyEmbeddingAPIKey, Mask(s.Embedding.APIKey)},
		{KeyEmbeddingDimensions, strconv.Itoa(s.Embedding.Dimensions)},
		{KeyEmbeddingRate, strconv.FormatFloat(s.Embedding.RequestsPerSecond, 'g', -1, 64)},
		{KeyStoreBackend, string(s.Store)},
		{KeyDatabaseURL, Mask(s.Database.URL)},
		{KeyDatabaseHost, s.Database.Host},
		{KeyDatabasePort, strconv.Itoa(s.Database.Port)},
		{KeyDatabaseName, s.Database.Name},
		{KeyDatabaseUser, s.Database.User},
		{KeyDatabasePassword, Mask(s.Database.Password)},
		{KeyS3Region, s.S3.Region},
		{KeyS3Bucket, s.S3.Bucket},
		{KeyS3AccessKey, Mask(s.S3.AccessKey)},
		{KeyS3SecretKey, Mask(s.S3.SecretKey)},
		{KeyTopK, strconv.Itoa(s.Search.TopK)},
		{KeyMaxDisplayChars, strconv.Itoa(s.Search.MaxDisplayChars)},
	}
}

func workersLabel(n int) string {
	if n == 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
