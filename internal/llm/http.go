package llm

import (
	"net/http"
	"time"
)

// defaultHTTPTimeout bounds a single model server request.
const defaultHTTPTimeout = 120 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}
