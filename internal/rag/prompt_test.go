package rag

import (
	"strings"
	"testing"

	"clarifyai/internal/vectorstore"
)

func TestAnswerPrompt(t *testing.T) {
	results := []vectorstore.Result{{Text: "first chunk"}, {Text: "second chunk"}}
	got := AnswerPrompt("What grew?", results)

	for _, want := range []string{
		"Use ONLY the provided context",
		"Context:\nfirst chunk\n\nsecond chunk",
		"User Question:\nWhat grew?",
		NotFoundAnswer,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestSummaryPrompt(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		wantLen int
	}{
		{name: "short", chunks: []string{"a", "b"}, wantLen: len("a\n\nb")},
		{name: "truncated", chunks: []string{strings.Repeat("x", 3000), strings.Repeat("y", 3000)}, wantLen: SummaryInputLimit},
		{name: "empty", chunks: nil, wantLen: 0},
	}
	prefix := "Please provide a concise summary of the following document:\n\n"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SummaryPrompt(tt.chunks)
			if !strings.HasPrefix(got, prefix) {
				t.Fatalf("prompt prefix = %q", got[:20])
			}
			if n := len([]rune(strings.TrimPrefix(got, prefix))); n != tt.wantLen {
				t.Errorf("body length = %d, want %d", n, tt.wantLen)
			}
		})
	}
}

func TestSources(t *testing.T) {
	results := []vectorstore.Result{
		{Metadata: vectorstore.Metadata{vectorstore.KeyFilename: "a.pdf"}},
		{Metadata: vectorstore.Metadata{}},
		{},
	}
	got := Sources(results)
	want := []string{"a.pdf", UnknownSource, UnknownSource}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sources()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
