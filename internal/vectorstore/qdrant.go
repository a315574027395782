package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore implements VectorStore using Qdrant
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantStore(ctx context.Context, url string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// CreateCollection creates a named collection with the given vector dimension
func (s *QdrantStore) CreateCollection(ctx context.Context, collection string, dimension int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CollectionExists checks if a collection exists
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}

	return exists, nil
}

// Upsert inserts or updates chunks in the collection
func (s *QdrantStore) Upsert(ctx context.Context, collection string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]*qdrant.Value{
			"content": qdrant.NewValueString(chunk.Content),
		}
		for k, v := range metadataToPayload(chunk.Metadata) {
			payload[k] = qdrant.NewValueString(v)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunk.ID),
			Payload: payload,
			Vectors: qdrant.NewVectors(chunk.Vector...),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// Search performs similarity search, optionally restricted by a metadata filter
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, topK int, filter Filter) ([]SearchResult, error) {
	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if f := buildFilter(filter); f != nil {
		query.Filter = f
	}

	response, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		result := SearchResult{
			ID:    point.Id.GetUuid(),
			Score: point.Score,
		}

		if payload := point.Payload; payload != nil {
			if content, ok := payload["content"]; ok {
				result.Content = content.GetStringValue()
			}
			result.Metadata = metadataFromPayload(payload)
		}

		results = append(results, result)
	}

	return results, nil
}

// Count returns the number of chunks stored in the collection
func (s *QdrantStore) Count(ctx context.Context, collection string) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}

	return count, nil
}

// DeleteByReport removes all chunks belonging to one report, identified by
// source company and report year
func (s *QdrantStore) DeleteByReport(ctx context.Context, collection string, source, year string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("source", source),
						qdrant.NewMatch("year", year),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete by report: %w", err)
	}

	return nil
}

// buildFilter converts a Filter into a qdrant payload filter. A single set
// field becomes one equality condition; both fields become a logical AND.
// Returns nil for an empty filter (unrestricted search).
func buildFilter(f Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}

	var must []*qdrant.Condition
	if f.Section != "" {
		must = append(must, qdrant.NewMatch("section", f.Section))
	}
	if f.Source != "" {
		must = append(must, qdrant.NewMatch("source", f.Source))
	}

	return &qdrant.Filter{Must: must}
}

// metadataToPayload flattens typed metadata into payload fields, skipping
// empty values so the two chunk schemas coexist in one payload layout.
func metadataToPayload(m Metadata) map[string]string {
	payload := make(map[string]string)
	fields := map[string]string{
		"source":      m.Source,
		"section":     m.Section,
		"sub_section": m.SubSection,
		"page_range":  m.PageRange,
		"company":     m.Company,
		"year":        m.Year,
		"page":        m.Page,
		"version":     m.Version,
	}
	for k, v := range fields {
		if v != "" {
			payload[k] = v
		}
	}
	return payload
}

func metadataFromPayload(payload map[string]*qdrant.Value) Metadata {
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	return Metadata{
		Source:     get("source"),
		Section:    get("section"),
		SubSection: get("sub_section"),
		PageRange:  get("page_range"),
		Company:    get("company"),
		Year:       get("year"),
		Page:       get("page"),
		Version:    get("version"),
	}
}

// Ensure QdrantStore implements VectorStore
var _ VectorStore = (*QdrantStore)(nil)
