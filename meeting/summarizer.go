package meeting

import (
	"context"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/provider"
)

const summarySystemPrompt = "You are an AI assistant that helps summarize meetings into structured data. " +
	"Extract key information, action items, and next steps from the transcript."

const summaryPrompt = `Please analyze the following meeting transcript and provide a structured summary.
Format your response as a JSON object with the following structure:
{
  "title": "A concise title for the meeting",
  "summary": "A 3-4 sentence summary of the key discussion points and outcomes",
  "keyPoints": ["Bullet point 1", "Bullet point 2", "Bullet point 3"],
  "actionItems": ["Action item 1", "Action item 2"],
  "nextSteps": ["Next step 1", "Next step 2"],
  "participants": ["Participant 1", "Participant 2"],
  "date": "YYYY-MM-DD"
}

Here is the transcript:
`

// Summarizer produces cached meeting summaries.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: upstream errors are wrapped and never cached; unparseable
//     answers return ErrParseResponse.
type Summarizer struct {
	e *engine
}

// NewSummarizer creates a Summarizer that caches through loader.
func NewSummarizer(completer provider.Completer, loader *cache.Loader, opts ...Option) *Summarizer {
	return &Summarizer{e: newEngine(completer, loader, opts)}
}

// Key returns the cache key Summarize uses for transcript and opts.
func (s *Summarizer) Key(transcript string, opts Options) string {
	return s.e.key(KindSummary, transcript, opts)
}

// Summarize returns the summary of transcript, from cache when possible.
func (s *Summarizer) Summarize(ctx context.Context, transcript string, opts Options) (Summary, error) {
	return run(ctx, s.e, call[Summary]{
		kind:   KindSummary,
		system: summarySystemPrompt,
		prompt: func(t string) string { return summaryPrompt + t },
		parse:  parseSummary,
	}, transcript, opts)
}

func parseSummary(content string) (Summary, error) {
	var s *Summary
	if err := decodeJSON(content, &s); err != nil {
		return Summary{}, err
	}
	if s == nil {
		return Summary{}, ErrParseResponse
	}
	return *s, nil
}
