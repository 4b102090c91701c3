package llm

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model overrides the client's default model when set.
	Model string

	// MaxTokens caps the completion length; 0 leaves it to the server.
	MaxTokens int

	// Temperature is omitted from the request when 0.
	Temperature float32
}
