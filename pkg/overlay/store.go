// Package overlay implements the shared overlay store: publish, search
// and fetch of overlay documents through a Redis Stack tag+vector
// index, with embeddings from an external provider.
package overlay

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"bonesagent/pkg/embed"
)

const (
	IndexName = "idx:overlays"
	KeyPrefix = "bones:overlay:"
)

var (
	// ErrUnavailable is wrapped into every operation's error when the
	// index is unreachable. The conversation continues; shared-overlay
	// features are inert.
	ErrUnavailable = errors.New("shared overlay store unavailable")
	ErrNotFound    = errors.New("overlay not found")
)

// Document is a published overlay. Identity is (domain, id);
// republishing the same pair overwrites. The embedding is derived from
// name, description, domain and tags, and regenerated on every publish.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Domain      string    `json:"domain"`
	HTML        string    `json:"html"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Position    string    `json:"position"`
	Tags        []string  `json:"tags"`
	CreatedAt   string    `json:"created_at"`
	Embedding   []float32 `json:"embedding"`
}

// Summary is one search hit. Score is the cosine distance for
// similarity hits, zero for exact hits.
type Summary struct {
	Key         string
	ID          string
	Name        string
	Description string
	Domain      string
	Position    string
	Score       float64
}

// indexClient is the slice of Redis Stack behavior the store needs.
// *redisClient adapts go-redis; tests substitute a fake.
type indexClient interface {
	Ping(ctx context.Context) error
	IndexInfo(ctx context.Context, index string) error
	CreateIndex(ctx context.Context, index, prefix string, dims int) error
	SetJSON(ctx context.Context, key string, doc any) error
	GetJSON(ctx context.Context, key string) (string, error)
	Search(ctx context.Context, index, query string, opts *redis.FTSearchOptions) ([]redis.Document, error)
}

type redisClient struct {
	c *redis.Client
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *redisClient) IndexInfo(ctx context.Context, index string) error {
	return r.c.FTInfo(ctx, index).Err()
}

func (r *redisClient) CreateIndex(ctx context.Context, index, prefix string, dims int) error {
	return r.c.FTCreate(ctx, index,
		&redis.FTCreateOptions{
			OnJSON: true,
			Prefix: []any{prefix},
		},
		&redis.FieldSchema{FieldName: "$.domain", As: "domain", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "$.name", As: "name", FieldType: redis.SearchFieldTypeText, Weight: 2},
		&redis.FieldSchema{FieldName: "$.description", As: "description", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "$.tags[*]", As: "tags", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{
			FieldName: "$.embedding",
			As:        "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            dims,
					DistanceMetric: "COSINE",
				},
			},
		},
	).Err()
}

func (r *redisClient) SetJSON(ctx context.Context, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.c.JSONSet(ctx, key, "$", string(data)).Err()
}

func (r *redisClient) GetJSON(ctx context.Context, key string) (string, error) {
	res, err := r.c.JSONGet(ctx, key, "$").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return res, err
}

func (r *redisClient) Search(ctx context.Context, index, query string, opts *redis.FTSearchOptions) ([]redis.Document, error) {
	res, err := r.c.FTSearchWithArgs(ctx, index, query, opts).Result()
	if err != nil {
		return nil, err
	}
	return res.Docs, nil
}

// Store is the shared overlay store. The connection is created lazily
// on first use and reused for the session lifetime; every operation
// tolerates an unusable connection by returning an explicit error.
type Store struct {
	addr     string
	embedder embed.Embedder
	logger   *slog.Logger

	dial       func(addr string) indexClient
	client     indexClient
	indexReady bool
}

func New(addr string, embedder embed.Embedder, logger *slog.Logger) *Store {
	return &Store{
		addr:     addr,
		embedder: embedder,
		logger:   logger.With("component", "overlay"),
		dial: func(addr string) indexClient {
			return &redisClient{c: redis.NewClient(&redis.Options{Addr: addr})}
		},
	}
}

func (s *Store) connect(ctx context.Context) (indexClient, error) {
	if s.client != nil {
		return s.client, nil
	}
	c := s.dial(s.addr)
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.logger.Info("connected", "addr", s.addr)
	s.client = c
	return c, nil
}

func (s *Store) ensureIndex(ctx context.Context) (indexClient, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	if s.indexReady {
		return c, nil
	}
	if err := c.IndexInfo(ctx, IndexName); err != nil {
		s.logger.Info("creating search index", "index", IndexName)
		err := c.CreateIndex(ctx, IndexName, KeyPrefix, s.embedder.Dimensions())
		// Another process may have created it between the check and
		// the create.
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return nil, fmt.Errorf("%w: create index: %v", ErrUnavailable, err)
		}
	}
	s.indexReady = true
	return c, nil
}

// Key returns the storage key for one (domain, id) identity.
func Key(domain, id string) string {
	return KeyPrefix + domain + ":" + id
}

// Publish writes the document under its (domain, id) key, overwriting
// any previous version. Embedding failure degrades to a zero vector so
// the overlay stays discoverable by exact search.
func (s *Store) Publish(ctx context.Context, doc Document, domain string, tags []string) (string, error) {
	c, err := s.ensureIndex(ctx)
	if err != nil {
		return "", err
	}
	if doc.ID == "" {
		return "", errors.New("overlay id is required")
	}
	if doc.Width == 0 {
		doc.Width = 400
	}
	if doc.Height == 0 {
		doc.Height = 300
	}
	if doc.Position == "" {
		doc.Position = "top-right"
	}
	doc.Domain = domain
	if tags == nil {
		tags = []string{}
	}
	doc.Tags = tags
	doc.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	vectors, err := s.embedder.EmbedDocuments(ctx, []string{embedText(doc.Name, doc.Description, domain, tags)})
	if err != nil {
		s.logger.Warn("embedding failed, publishing without vector", "error", err)
		doc.Embedding = embed.ZeroVector(s.embedder.Dimensions())
	} else {
		doc.Embedding = vectors[0]
	}

	key := Key(domain, doc.ID)
	if err := c.SetJSON(ctx, key, doc); err != nil {
		return "", fmt.Errorf("%w: publish: %v", ErrUnavailable, err)
	}
	s.logger.Info("published", "key", key)
	return key, nil
}

var summaryReturn = []redis.FTSearchReturn{
	{FieldName: "$.id", As: "id"},
	{FieldName: "$.name", As: "name"},
	{FieldName: "$.description", As: "description"},
	{FieldName: "$.domain", As: "domain"},
	{FieldName: "$.position", As: "position"},
}

// SearchExact lists overlays published for a domain, in index order.
func (s *Store) SearchExact(ctx context.Context, domain string, limit int) ([]Summary, error) {
	c, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf("@domain:{%s}", escapeTag(domain))
	docs, err := c.Search(ctx, IndexName, query, &redis.FTSearchOptions{
		Return: summaryReturn,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: exact search: %v", ErrUnavailable, err)
	}
	return toSummaries(docs), nil
}

// SearchSimilar ranks overlays by cosine distance to the query text,
// optionally excluding one domain, ascending by distance.
func (s *Store) SearchSimilar(ctx context.Context, queryText, excludeDomain string, limit int) ([]Summary, error) {
	c, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	vectors, err := s.embedder.EmbedQueries(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	filter := "*"
	if excludeDomain != "" {
		filter = fmt.Sprintf("(-@domain:{%s})", escapeTag(excludeDomain))
	}
	query := fmt.Sprintf("%s=>[KNN %d @embedding $vec AS score]", filter, limit)

	docs, err := c.Search(ctx, IndexName, query, &redis.FTSearchOptions{
		Return:         append(summaryReturn[:len(summaryReturn):len(summaryReturn)], redis.FTSearchReturn{FieldName: "score"}),
		SortBy:         []redis.FTSearchSortBy{{FieldName: "score", Asc: true}},
		Limit:          limit,
		Params:         map[string]any{"vec": packVector(vectors[0])},
		DialectVersion: 2,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", ErrUnavailable, err)
	}
	return toSummaries(docs), nil
}

// Get fetches a full overlay document by its storage key.
func (s *Store) Get(ctx context.Context, key string) (*Document, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.GetJSON(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", ErrUnavailable, err)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	// JSON.GET with a $ path returns an array of matches.
	var docs []Document
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, fmt.Errorf("decode overlay %s: %w", key, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return &docs[0], nil
}

// Available is a liveness probe. All other operations stay safe to
// call regardless of its result.
func (s *Store) Available(ctx context.Context) bool {
	_, err := s.connect(ctx)
	return err == nil
}

func toSummaries(docs []redis.Document) []Summary {
	summaries := make([]Summary, 0, len(docs))
	for _, d := range docs {
		sum := Summary{
			Key:         d.ID,
			ID:          d.Fields["id"],
			Name:        d.Fields["name"],
			Description: d.Fields["description"],
			Domain:      d.Fields["domain"],
			Position:    d.Fields["position"],
		}
		if raw, ok := d.Fields["score"]; ok {
			if score, err := strconv.ParseFloat(raw, 64); err == nil {
				sum.Score = score
			}
		}
		summaries = append(summaries, sum)
	}
	return summaries
}

// embedText builds the canonical text an overlay is embedded from.
func embedText(name, description, domain string, tags []string) string {
	return fmt.Sprintf("%s. %s. domain:%s. %s", name, description, domain, strings.Join(tags, ", "))
}

// packVector encodes a vector as the little-endian float32 blob the
// KNN query parameter expects.
func packVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

const tagSpecials = ",./<>{}[]\"':;!@#$%^&*()-+=~ "

// escapeTag escapes the characters RediSearch treats specially inside
// TAG queries.
func escapeTag(value string) string {
	var b strings.Builder
	for _, ch := range value {
		if strings.ContainsRune(tagSpecials, ch) {
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	return b.String()
}
