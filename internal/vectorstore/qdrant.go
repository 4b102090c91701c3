package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"clarifyai/internal/apperr"
	"clarifyai/internal/contextutil"
)

// Payload keys written next to the caller metadata.
const (
	payloadRecordID = "record_id"
	payloadText     = "document_text"
)

// scrollPageSize bounds each page fetched by ChunksByDoc.
const scrollPageSize = 256

// pointNamespace seeds the deterministic point ids derived from record ids.
var pointNamespace = uuid.MustParse("6f1c2b8e-4a53-4c0e-9d7e-3b7a1f0c9e21")

// QdrantIndex implements Index on a single Qdrant collection.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// parseQdrantURL returns the gRPC host and port for an HTTP URL such as
// "http://localhost:6333". The gRPC port is the HTTP port + 1.
func parseQdrantURL(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// NewQdrantIndex connects to Qdrant at urlStr and uses collection.
func NewQdrantIndex(urlStr, collection string) (*QdrantIndex, error) {
	host, port, err := parseQdrantURL(urlStr)
	if err != nil {
		return nil, apperr.Classify(apperr.ErrConfiguration, err, "qdrant")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "failed to create Qdrant client")
	}

	return &QdrantIndex{client: client, collection: collection}, nil
}

// Close closes the gRPC connection.
func (s *QdrantIndex) Close() error {
	return s.client.Close()
}

// PointID maps a record id onto the UUID Qdrant stores it under.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

func docFilter(docID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(KeyDocID, docID)},
	}
}

// Insert implements Index. The upsert waits for the write to be applied.
func (s *QdrantIndex) Insert(ctx context.Context, docID string, texts []string, vectors [][]float32, metas []Metadata) error {
	logger := contextutil.LoggerFromContext(ctx)

	records, err := prepareRecords(docID, texts, vectors, metas)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		payload := make(map[string]any, len(rec.Metadata)+2)
		for k, v := range rec.Metadata {
			payload[k] = v
		}
		payload[payloadRecordID] = rec.ID
		payload[payloadText] = rec.Text

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(rec.ID)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(points), "error", err)
		return apperr.Classify(apperr.ErrIndex, err, "failed to upsert points")
	}

	logger.DebugContext(ctx, "upserted points", "collection", s.collection, "doc_id", docID, "count", len(points))
	return nil
}

// Query implements Index. Qdrant reports cosine similarity; it is converted
// to a distance.
func (s *QdrantIndex) Query(ctx context.Context, vector []float32, topK int, docID string) ([]Result, error) {
	if topK <= 0 {
		return nil, &apperr.ValidationError{Field: "top_k", Message: "must be greater than 0"}
	}

	limit := uint64(topK)
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if docID != "" {
		req.Filter = docFilter(docID)
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "failed to search points")
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		res := resultFromPayload(p.GetPayload())
		d := 1 - float64(p.GetScore())
		res.Distance = &d
		results = append(results, res)
	}
	return results, nil
}

// DeleteByDoc implements Index.
func (s *QdrantIndex) DeleteByDoc(ctx context.Context, docID string) error {
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(docFilter(docID)),
	})
	if err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to delete points")
	}
	return nil
}

// ChunksByDoc implements Index by scrolling through the document's points.
func (s *QdrantIndex) ChunksByDoc(ctx context.Context, docID string) ([]string, error) {
	type indexed struct {
		index int64
		text  string
	}

	var (
		found  []indexed
		offset *qdrant.PointId
		limit  = uint32(scrollPageSize)
	)
	for {
		resp, err := s.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         docFilter(docID),
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, apperr.Classify(apperr.ErrIndex, err, "failed to scroll points")
		}
		for _, p := range resp.GetResult() {
			res := resultFromPayload(p.GetPayload())
			idx, _ := res.Metadata.Int(KeyChunkIndex)
			found = append(found, indexed{index: idx, text: res.Text})
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].index < found[j].index })
	texts := make([]string, len(found))
	for i, f := range found {
		texts[i] = f.text
	}
	return texts, nil
}

// Count implements Index.
func (s *QdrantIndex) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, apperr.Classify(apperr.ErrIndex, err, "failed to count points")
	}
	return int(n), nil
}

// EnsureCollection creates the collection with cosine distance, or checks
// that an existing one has vectorSize dimensions.
func (s *QdrantIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to check collection existence")
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return apperr.Classify(apperr.ErrIndex, err, "failed to create collection")
		}
		if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      KeyDocID,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		}); err != nil {
			return apperr.Classify(apperr.ErrIndex, err, "failed to index doc_id")
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to get collection info")
	}

	var actual uint64
	if cfg := info.GetConfig(); cfg != nil {
		actual = cfg.GetParams().GetVectorsConfig().GetParams().GetSize()
	}
	if actual == 0 {
		return fmt.Errorf("%w: could not determine collection vector size", apperr.ErrIndex)
	}
	if int(actual) != vectorSize {
		return fmt.Errorf("%w: collection vector size mismatch: expected %d, got %d", apperr.ErrConfiguration, vectorSize, actual)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// resultFromPayload splits a stored payload into record id, text and
// caller-visible metadata.
func resultFromPayload(payload map[string]*qdrant.Value) Result {
	meta := make(Metadata, len(payload))
	var res Result
	for k, v := range payload {
		if v == nil {
			continue
		}
		switch k {
		case payloadRecordID:
			res.ID = v.GetStringValue()
		case payloadText:
			res.Text = v.GetStringValue()
		default:
			if sv, ok := convertValue(v); ok {
				meta[k] = sv
			}
		}
	}
	res.Metadata = meta
	return res
}

// convertValue maps a Qdrant scalar onto the Metadata value types.
func convertValue(v *qdrant.Value) (any, bool) {
	switch val := v.GetKind().(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue, true
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue, true
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue, true
	case *qdrant.Value_StringValue:
		return val.StringValue, true
	default:
		return nil, false
	}
}
