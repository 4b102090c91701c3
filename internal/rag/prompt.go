package rag

import (
	"strings"

	"clarifyai/internal/vectorstore"
)

// Fixed answers returned instead of a generated completion.
const (
	NotFoundAnswer    = "I could not find information related to your question in the uploaded documents."
	UnavailableAnswer = "I apologize, but I'm currently unable to process your request. Please try again later."
)

// SummaryInputLimit caps the characters of document text put into a
// summary prompt.
const SummaryInputLimit = 4000

// UnknownSource labels a chunk whose metadata has no filename.
const UnknownSource = "Unknown"

// AnswerPrompt builds the grounded question-answering prompt.
func AnswerPrompt(query string, results []vectorstore.Result) string {
	var b strings.Builder
	b.WriteString("You are ClarifyAI. Use ONLY the provided context to answer.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(Texts(results), "\n\n"))
	b.WriteString("\n\nUser Question:\n")
	b.WriteString(query)
	b.WriteString("\n\nIf answer not found in context, say:\n\"")
	b.WriteString(NotFoundAnswer)
	b.WriteString("\"\n")
	return b.String()
}

// SummaryPrompt builds the summarization prompt from a document's chunks.
// The joined text is cut to SummaryInputLimit runes.
func SummaryPrompt(chunks []string) string {
	text := strings.Join(chunks, "\n\n")
	if r := []rune(text); len(r) > SummaryInputLimit {
		text = string(r[:SummaryInputLimit])
	}
	return "Please provide a concise summary of the following document:\n\n" + text
}

// Texts returns the chunk texts of results.
func Texts(results []vectorstore.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

// Sources returns the filename of each result, UnknownSource when missing.
func Sources(results []vectorstore.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		name := r.Metadata.String(vectorstore.KeyFilename)
		if name == "" {
			name = UnknownSource
		}
		out[i] = name
	}
	return out
}
