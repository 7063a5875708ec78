// Package chroma provides a Chroma vector database driver implementation.
//
// Each driver owns a freshly created collection configured for cosine
// distance. The collection is deleted on Close, so nothing is left behind in
// the Chroma server once a run ends.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/pagerag/pkg/document"
	"github.com/papercomputeco/pagerag/pkg/vector"
)

const (
	// DefaultCollectionPrefix prefixes generated collection names.
	DefaultCollectionPrefix = "pagerag"

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger

	mu   sync.Mutex
	size int
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName overrides the generated "pagerag-<uuid>" name.
	CollectionName string

	// HTTPClient overrides the default client (60s timeout).
	HTTPClient *http.Client
}

// NewDriver creates the collection and returns a driver bound to it.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	name := c.CollectionName
	if name == "" {
		name = DefaultCollectionPrefix + "-" + uuid.NewString()
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: name,
		httpClient:     httpClient,
		logger:         logger,
	}

	id, err := d.createCollection(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection %q: %v", vector.ErrConnection, name, err)
	}
	d.collectionID = id

	logger.Debug("created chroma collection",
		"url", c.URL,
		"collection", name,
		"collection_id", id,
	)

	return d, nil
}

func (d *Driver) createCollection(ctx context.Context) (string, error) {
	var collection chromaCollection
	err := d.do(ctx, http.MethodPost, collectionsPath, chromaCreateRequest{
		Name:     d.collectionName,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}, &collection)
	if err != nil {
		return "", err
	}
	if collection.ID == "" {
		return "", fmt.Errorf("chroma returned a collection without an id")
	}
	return collection.ID, nil
}

// do sends a JSON request and decodes a JSON response into out when non nil.
func (d *Driver) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Add stores documents with their embeddings. Chunk fields and the insertion
// position are kept as metadata.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	req := chromaAddRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
		Documents:  make([]string, len(docs)),
	}
	for i, doc := range docs {
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Documents[i] = doc.Chunk.Text
		req.Metadatas[i] = map[string]any{
			"source":      doc.Chunk.Source,
			"doc_index":   doc.Chunk.DocIndex,
			"chunk_index": doc.Chunk.Index,
			"offset":      doc.Chunk.Offset,
			"position":    d.size + i,
		}
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("/add"), req, nil); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	d.size += len(docs)

	d.logger.Debug("added documents to chroma",
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

	d.mu.Lock()
	size := d.size
	d.mu.Unlock()

	if size == 0 {
		return []vector.QueryResult{}, nil
	}

	// Every entry is requested so ties at the cut-off are broken by position
	// here rather than by the HNSW scan.
	var resp chromaQueryResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("/query"), chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        size,
		Include:         []string{"metadatas", "documents", "distances", "embeddings"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	// Process first group (we only query with one embedding)
	if len(resp.IDs) == 0 || len(resp.IDs[0]) == 0 {
		return []vector.QueryResult{}, nil
	}

	ids := resp.IDs[0]
	distances := firstGroup(resp.Distances)
	metadatas := firstGroup(resp.Metadatas)
	documents := firstGroup(resp.Documents)
	embeddings := firstGroup(resp.Embeddings)

	ranked := make([]vector.RankedResult, len(ids))
	for i, id := range ids {
		r := vector.RankedResult{
			QueryResult: vector.QueryResult{Document: vector.Document{ID: id}},
			Position:    i,
		}

		if i < len(documents) {
			r.Chunk.Text = documents[i]
		}
		if i < len(embeddings) {
			r.Embedding = embeddings[i]
		}
		if i < len(distances) {
			r.Distance = distances[i]
			r.Score = 1 - distances[i]
		}
		if i < len(metadatas) && metadatas[i] != nil {
			r.Chunk = chunkFromMetadata(metadatas[i], r.Chunk.Text)
			if pos, ok := intMeta(metadatas[i], "position"); ok {
				r.Position = pos
			}
		}

		ranked[i] = r
	}

	results := vector.SortResults(ranked, topK)

	d.logger.Debug("queried chroma",
		"top_k", topK,
		"results", len(results),
	)

	return results, nil
}

// Size returns the number of documents added through this driver.
func (d *Driver) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// Close deletes the collection.
func (d *Driver) Close() error {
	err := d.do(context.Background(), http.MethodDelete, collectionsPath+"/"+d.collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("deleting collection %q: %w", d.collectionName, err)
	}
	return nil
}

// CollectionName returns the name of the collection backing this driver.
func (d *Driver) CollectionName() string {
	return d.collectionName
}

func (d *Driver) collectionPath(suffix string) string {
	return collectionsPath + "/" + d.collectionID + suffix
}

func firstGroup[T any](groups [][]T) []T {
	if len(groups) == 0 {
		return nil
	}
	return groups[0]
}

func chunkFromMetadata(meta map[string]any, text string) document.Chunk {
	c := document.Chunk{Text: text}
	if s, ok := meta["source"].(string); ok {
		c.Source = s
	}
	c.DocIndex, _ = intMeta(meta, "doc_index")
	c.Index, _ = intMeta(meta, "chunk_index")
	c.Offset, _ = intMeta(meta, "offset")
	return c
}

// intMeta reads an integer metadata value. JSON numbers decode as float64.
func intMeta(meta map[string]any, key string) (int, bool) {
	switch v := meta[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
