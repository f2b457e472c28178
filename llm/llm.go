package llm

import "context"

// Client abstracts a vision-capable inference provider used by the analyzer.
// Implementations must be concurrency-safe if used across goroutines.
type Client interface {
	// AnalyzeImage takes raw image bytes and its content type, and returns
	// the raw text of the model's reply. Failures are reported with their
	// apperrors kind (rate limit, quota, upstream, empty reply); no retries
	// happen at this level.
	AnalyzeImage(ctx context.Context, imageData []byte, contentType string) (string, error)
	// SourceName returns a short provider label (e.g., "ChatGPT").
	SourceName() string
}
