package pgvector

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

//go:embed scripts/bootstrap.sql
var bootstrapSQL string

const bootstrapTimeout = time.Minute

// Store is a pgvector-backed implementation of driven.VectorStore.
type Store struct {
	db         *sql.DB
	dimensions int
}

// Open connects to dsn, checks the server and creates the schema if needed.
func Open(ctx context.Context, dsn string, dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, dimensions: dimensions}

	ctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping db: %w", domain.ErrVectorStoreUnavailable, err)
	}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return s, nil
}

// bootstrap runs the schema script and checks the vector column matches.
func (s *Store) bootstrap(ctx context.Context) error {
	script := strings.ReplaceAll(bootstrapSQL, "{{dimensions}}", strconv.Itoa(s.dimensions))
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("run bootstrap.sql: %w", err)
	}

	var columnDims int
	err := s.db.QueryRowContext(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'embeddings'::regclass AND attname = 'vecteur'`).Scan(&columnDims)
	if err != nil {
		return fmt.Errorf("read vector column: %w", err)
	}
	if columnDims > 0 && columnDims != s.dimensions {
		return fmt.Errorf("%w: embeddings.vecteur has %d dimensions, model produces %d",
			domain.ErrInvalidSettings, columnDims, s.dimensions)
	}
	logger.Debug("pgvector: schema ready (%d dimensions)", s.dimensions)
	return nil
}

const upsertSQL = `
	INSERT INTO embeddings (id_document, sequence_index, texte_fragment, vecteur)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id_document, sequence_index)
	DO UPDATE SET texte_fragment = EXCLUDED.texte_fragment, vecteur = EXCLUDED.vecteur`

// Upsert inserts records, replacing any with the same key.
func (s *Store) Upsert(ctx context.Context, records ...domain.StoredRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insert(ctx, tx, records)
	})
}

// ReplaceDocument deletes a document's records and inserts the new set in
// one transaction.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, records []domain.StoredRecord) error {
	for _, r := range records {
		if r.DocumentID != documentID {
			return fmt.Errorf("%w: record for %q in replace of %q", domain.ErrInvalidInput, r.DocumentID, documentID)
		}
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE id_document = $1`, documentID); err != nil {
			return fmt.Errorf("delete %s: %w", documentID, err)
		}
		return s.insert(ctx, tx, records)
	})
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, records []domain.StoredRecord) error {
	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if len(r.Vector) != s.dimensions {
			return fmt.Errorf("%w: vector has %d dimensions, store has %d",
				domain.ErrInvalidInput, len(r.Vector), s.dimensions)
		}
		if _, err := stmt.ExecContext(ctx,
			r.DocumentID, r.SequenceIndex, r.Text, pgvector.NewVector(r.Vector),
		); err != nil {
			return fmt.Errorf("insert %s/%d: %w", r.DocumentID, r.SequenceIndex, err)
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Warn("pgvector: rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteByDocument removes every record for documentID.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE id_document = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", documentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// DeleteAll truncates the table and restarts the id sequence.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE TABLE embeddings RESTART IDENTITY`); err != nil {
		return fmt.Errorf("truncate embeddings: %w", err)
	}
	return nil
}

// QueryTopK returns the k nearest records by cosine distance.
// Score is 1 - distance.
func (s *Store) QueryTopK(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d",
			domain.ErrInvalidInput, len(vector), s.dimensions)
	}

	const q = `
		SELECT id_document, sequence_index, texte_fragment, 1 - (vecteur <=> $1) AS score
		FROM embeddings
		ORDER BY vecteur <=> $1, id_document, sequence_index
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query top-k: %w", err)
	}
	defer rows.Close()

	results := make([]domain.SearchResult, 0, k)
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.DocumentID, &r.SequenceIndex, &r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Rank = len(results) + 1
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// CountByDocument returns the number of records stored for documentID.
func (s *Store) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE id_document = $1`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", documentID, err)
	}
	return n, nil
}

// Count returns the total number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
