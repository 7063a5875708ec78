// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
//
// The vec0 table is declared with the cosine metric so distances agree with
// the in-memory driver. Tables are dropped and recreated when a driver is
// opened: an index never outlives the run that built it, even when DBPath
// points at a file. A file whose vec tables were not created by this driver
// is refused rather than overwritten.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/pagerag/pkg/document"
	"github.com/papercomputeco/pagerag/pkg/vector"
)

const (
	// DefaultDBPath keeps the index in process memory.
	DefaultDBPath = ":memory:"

	// maxKNN is the largest k a vec0 KNN query accepts.
	maxKNN = 4096

	// markerTable records that the vec tables in a database belong to pagerag.
	markerTable = "pagerag_index"
)

// ErrForeignTables is returned when DBPath already holds vec tables that this
// driver did not create.
var ErrForeignTables = errors.New("database already contains vec tables not created by pagerag")

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger

	mu   sync.Mutex
	size int
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Defaults to DefaultDBPath if empty.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// Required.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	dbPath := c.DBPath
	if dbPath == "" {
		dbPath = DefaultDBPath
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every new connection to ":memory:" is a different database.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if err := checkOwnership(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s", err, dbPath)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + markerTable + ` (created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
		`DROP TABLE IF EXISTS vec_embeddings`,
		`DROP TABLE IF EXISTS vec_chunks`,
		// vec0 virtual tables use integer rowids, so chunk data and the string
		// document IDs live in a companion table keyed by the same rowid.
		`CREATE TABLE vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			doc_index INTEGER NOT NULL DEFAULT 0,
			chunk_index INTEGER NOT NULL DEFAULT 0,
			char_offset INTEGER NOT NULL DEFAULT 0
		)`,
		fmt.Sprintf(
			`CREATE VIRTUAL TABLE vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
			c.Dimensions,
		),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("preparing schema: %w", err)
		}
	}

	logger.Debug("sqlite-vec vector driver initialized",
		"db_path", dbPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// checkOwnership returns ErrForeignTables when db has vec_chunks or
// vec_embeddings but no marker table.
func checkOwnership(db *sql.DB) error {
	var vecTables, markers int
	err := db.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE name IN ('vec_chunks', 'vec_embeddings')),
			COUNT(*) FILTER (WHERE name = ?)
		FROM sqlite_master
		WHERE type = 'table'
	`, markerTable).Scan(&vecTables, &markers)
	if err != nil {
		return fmt.Errorf("inspecting schema: %w", err)
	}
	if vecTables > 0 && markers == 0 {
		return ErrForeignTables
	}
	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Add stores documents with their embeddings in one transaction. Insertion
// order is kept in the rowid, which breaks distance ties on Query.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: document %s has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), d.dimensions)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO vec_chunks(doc_id, text, source, doc_index, chunk_index, char_offset)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.Chunk.Text, doc.Chunk.Source, doc.Chunk.DocIndex, doc.Chunk.Index, doc.Chunk.Offset,
		)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, serializeFloat32(doc.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	d.size += len(docs)

	d.logger.Debug("added documents to sqlite-vec",
		"count", len(docs),
		"size", d.size,
	)

	return nil
}

// Query finds the topK closest documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", vector.ErrInvalidTopK, topK)
	}
	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensionMismatch, len(embedding), d.dimensions)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.size == 0 {
		return []vector.QueryResult{}, nil
	}

	rows, err := d.queryRows(ctx, serializeFloat32(embedding))
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var ranked []vector.RankedResult
	for rows.Next() {
		var (
			rowID    int64
			chunk    document.Chunk
			docID    string
			embBlob  []byte
			distance float64
		)
		if err := rows.Scan(
			&rowID, &docID, &chunk.Text, &chunk.Source,
			&chunk.DocIndex, &chunk.Index, &chunk.Offset,
			&embBlob, &distance,
		); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		emb, err := deserializeFloat32(embBlob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for doc %s: %w", docID, err)
		}

		ranked = append(ranked, vector.RankedResult{
			QueryResult: vector.QueryResult{
				Document: vector.Document{
					ID:        docID,
					Chunk:     chunk,
					Embedding: emb,
				},
				Distance: float32(distance),
				Score:    float32(1 - distance),
			},
			Position: int(rowID),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	results := vector.SortResults(ranked, topK)

	d.logger.Debug("queried sqlite-vec",
		"top_k", topK,
		"results", len(results),
	)

	return results, nil
}

const knnQuery = `
	WITH knn AS (
		SELECT rowid, embedding, distance
		FROM vec_embeddings
		WHERE embedding MATCH ?
			AND k = ?
	)
	SELECT
		c.rowid,
		c.doc_id,
		c.text,
		c.source,
		c.doc_index,
		c.chunk_index,
		c.char_offset,
		knn.embedding,
		knn.distance
	FROM knn
	INNER JOIN vec_chunks c ON c.rowid = knn.rowid
	ORDER BY knn.distance, c.rowid
`

const scanQuery = `
	SELECT
		c.rowid,
		c.doc_id,
		c.text,
		c.source,
		c.doc_index,
		c.chunk_index,
		c.char_offset,
		e.embedding,
		vec_distance_cosine(e.embedding, ?) AS distance
	FROM vec_embeddings e
	INNER JOIN vec_chunks c ON c.rowid = e.rowid
	ORDER BY distance, c.rowid
`

// queryRows returns every stored row with its distance to query. Up to
// maxKNN rows the vec0 KNN scan is used; past that vec0 rejects k, so
// distances are computed over the whole table instead. Either way all rows
// come back so ties at the top-k cut-off are ranked by rowid in SortResults.
// Callers hold d.mu.
func (d *Driver) queryRows(ctx context.Context, query []byte) (*sql.Rows, error) {
	if d.size <= maxKNN {
		return d.db.QueryContext(ctx, knnQuery, query, d.size)
	}
	return d.db.QueryContext(ctx, scanQuery, query)
}

// Size returns the number of stored documents.
func (d *Driver) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
