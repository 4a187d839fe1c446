package intent

import "context"

// TextModelClient is the external, black-box text-model collaborator
// (LLM/NLP) that IntentParser calls on the primary path. Only the
// interface boundary lives here so tests can supply a fake and
// production can wire a real HTTP client.
type TextModelClient interface {
	Parse(ctx context.Context, message string, history []HistoryTurn) (Result, error)
}
