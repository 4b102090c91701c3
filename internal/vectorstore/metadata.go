package vectorstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"clarifyai/internal/apperr"
)

// Well-known metadata keys.
const (
	KeyDocID      = "doc_id"
	KeyChunkIndex = "chunk_index"
	KeyTokenCount = "token_count"
	KeyFilename   = "filename"
)

// Metadata maps keys to scalar values. Values are restricted to string,
// int64, float64 and bool; Normalize converts other numeric types.
type Metadata map[string]any

// String returns the string value of key, or "" when absent or not a string.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Int returns the integer value of key.
func (m Metadata) Int(key string) (int64, bool) {
	switch v := m[key].(type) {
	case int64:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	}
	return 0, false
}

// Normalize returns a copy of m with every value converted to one of the
// supported scalar types.
func (m Metadata) Normalize() (Metadata, error) {
	out := make(Metadata, len(m)+1)
	for k, v := range m {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, &apperr.ValidationError{Field: "metadata." + k, Message: err.Error()}
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case string, bool, int64, float64:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return uintValue(uint64(val))
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return uintValue(val)
	case float32:
		return float64(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		return val.Float64()
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func uintValue(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("value %s overflows int64", strconv.FormatUint(u, 10))
	}
	return int64(u), nil
}

// prepareRecords validates an insert batch and builds its records.
func prepareRecords(docID string, texts []string, vectors [][]float32, metas []Metadata) ([]Record, error) {
	if docID == "" {
		return nil, &apperr.ValidationError{Field: KeyDocID, Message: "cannot be empty"}
	}
	if len(texts) != len(vectors) || len(texts) != len(metas) {
		return nil, &apperr.ValidationError{
			Field:   "records",
			Message: fmt.Sprintf("length mismatch: %d texts, %d vectors, %d metadata", len(texts), len(vectors), len(metas)),
		}
	}

	records := make([]Record, len(texts))
	dim := 0
	for i := range texts {
		if len(vectors[i]) == 0 {
			return nil, &apperr.ValidationError{Field: "vectors", Message: fmt.Sprintf("vector %d is empty", i)}
		}
		if dim == 0 {
			dim = len(vectors[i])
		} else if len(vectors[i]) != dim {
			return nil, &apperr.ValidationError{
				Field:   "vectors",
				Message: fmt.Sprintf("vector %d has dimension %d, want %d", i, len(vectors[i]), dim),
			}
		}

		meta, err := metas[i].Normalize()
		if err != nil {
			return nil, err
		}
		if other, ok := meta[KeyDocID]; ok && other != docID {
			return nil, &apperr.ValidationError{Field: KeyDocID, Message: fmt.Sprintf("metadata doc_id %v does not match %s", other, docID)}
		}
		meta[KeyDocID] = docID

		idx, ok := meta.Int(KeyChunkIndex)
		if !ok {
			return nil, &apperr.ValidationError{Field: KeyChunkIndex, Message: fmt.Sprintf("missing or not an integer in record %d", i)}
		}
		if idx != int64(i) {
			return nil, &apperr.ValidationError{Field: KeyChunkIndex, Message: fmt.Sprintf("record %d has chunk_index %d", i, idx)}
		}

		records[i] = Record{
			ID:       RecordID(docID, i),
			Vector:   vectors[i],
			Text:     texts[i],
			Metadata: meta,
		}
	}
	return records, nil
}
