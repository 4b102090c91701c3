package indexer

// Chunk is a token-bounded segment of a document, in document order.
type Chunk struct {
	Text       string `json:"text"`        // Words joined by single spaces
	Index      int    `json:"index"`       // Position within the document, starting at 0
	TokenCount int    `json:"token_count"` // Sum of the token costs of the words in Text
}
