package docstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	json "github.com/goccy/go-json"
	"github.com/tinypath/tinypath/internal/shortener"
)

// DefaultIndex is the index holding the shortened urls.
const DefaultIndex = "tinypath-shortened-url"

// ElasticStore is the Elasticsearch implementation of Store.
//
// Documents are keyed by their source, so uniqueness of the short name is
// enforced by the engine as a create conflict. The source field is indexed
// as text with a raw keyword sub-field, which lets us run fuzzy full-text
// queries against it and still sort listings lexicographically.
type ElasticStore struct {
	client *elasticsearch.Client
	index  string
}

// ElasticConfig holds the connection settings for the store.
type ElasticConfig struct {
	Addresses []string
	CloudID   string
	APIKey    string
	Index     string
}

// NewElasticStore connects to the cluster, verifies it is reachable and
// creates the index on first use. An unreachable cluster is a startup
// failure, not something to limp along without.
func NewElasticStore(ctx context.Context, cfg ElasticConfig) (*ElasticStore, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		CloudID:   cfg.CloudID,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}

	store := &ElasticStore{client: client, index: index}

	if err := store.Ping(ctx); err != nil {
		return nil, err
	}

	if err := store.ensureIndex(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// indexMapping mirrors the redirect document: a fuzzy-searchable source with
// a keyword sub-field for sorting, plus the analytics and provenance fields.
const indexMapping = `{
  "mappings": {
    "properties": {
      "source": {
        "type": "text",
        "fields": { "raw": { "type": "keyword" } }
      },
      "destination": { "type": "text" },
      "isPrivate": { "type": "boolean" },
      "count": { "type": "integer" },
      "user": { "type": "keyword" },
      "created": { "type": "date" }
    }
  }
}`

func (s *ElasticStore) ensureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists(
		[]string{s.index},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index exists check: %w", err)
	}
	drain(res)

	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("index create: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("index create: %s", res.String())
	}

	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string             `json:"_id"`
			Score  float64            `json:"_score"`
			Source shortener.Redirect `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticStore) Search(ctx context.Context, source string) ([]Hit, error) {
	// AUTO fuzziness scales the tolerated edit distance with term length.
	// Sorting on score first and the raw source second makes equal-score
	// ordering deterministic instead of engine-dependent.
	query := map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"source": map[string]any{
					"query":     source,
					"fuzziness": "AUTO",
				},
			},
		},
		"sort": []any{
			map[string]any{"_score": "desc"},
			map[string]any{"source.raw": "asc"},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search decode: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		hits = append(hits, Hit{Record: hit.Source, Score: hit.Score})
	}

	return hits, nil
}

func (s *ElasticStore) Create(ctx context.Context, redirect *shortener.Redirect) error {
	body, err := json.Marshal(redirect)
	if err != nil {
		return err
	}

	res, err := s.client.Create(
		s.index,
		string(redirect.Source),
		bytes.NewReader(body),
		s.client.Create.WithContext(ctx),
		s.client.Create.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusConflict {
		return shortener.ErrConflict
	}

	if res.IsError() {
		return fmt.Errorf("create: %s", res.String())
	}

	return nil
}

func (s *ElasticStore) Update(ctx context.Context, redirect *shortener.Redirect) error {
	body, err := json.Marshal(map[string]any{
		"doc": map[string]any{
			"source":      redirect.Source,
			"destination": redirect.Destination,
			"isPrivate":   redirect.IsPrivate,
		},
	})
	if err != nil {
		return err
	}

	res, err := s.client.Update(
		s.index,
		string(redirect.Source),
		bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
		s.client.Update.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return shortener.ErrNotFound
	}

	if res.IsError() {
		return fmt.Errorf("update: %s", res.String())
	}

	return nil
}

func (s *ElasticStore) Delete(ctx context.Context, source shortener.Source) error {
	res, err := s.client.Delete(
		s.index,
		string(source),
		s.client.Delete.WithContext(ctx),
		s.client.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return shortener.ErrNotFound
	}

	if res.IsError() {
		return fmt.Errorf("delete: %s", res.String())
	}

	return nil
}

func (s *ElasticStore) List(ctx context.Context, user string, from, size int) (*Page, error) {
	query := map[string]any{
		"from": from,
		"size": size,
		"query": map[string]any{
			"term": map[string]any{"user": user},
		},
		"sort": "source.raw",
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		return nil, fmt.Errorf("list: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("list decode: %w", err)
	}

	page := &Page{Total: parsed.Hits.Total.Value}
	for _, hit := range parsed.Hits.Hits {
		page.Redirects = append(page.Redirects, hit.Source)
	}

	return page, nil
}

func (s *ElasticStore) IncrementCount(ctx context.Context, source shortener.Source, n int64) error {
	body, err := json.Marshal(map[string]any{
		"script": map[string]any{
			"lang":   "painless",
			"source": "ctx._source.count += params.n",
			"params": map[string]any{"n": n},
		},
	})
	if err != nil {
		return err
	}

	res, err := s.client.Update(
		s.index,
		string(source),
		bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("increment count: %w", err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return shortener.ErrNotFound
	}

	if res.IsError() {
		return fmt.Errorf("increment count: %s", res.String())
	}

	return nil
}

func (s *ElasticStore) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("ping: %s", res.String())
	}

	return nil
}

// drain consumes and closes a response body so the transport can reuse
// the underlying connection.
func drain(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
