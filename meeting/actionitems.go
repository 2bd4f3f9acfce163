package meeting

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/provider"
)

const actionItemsSystemPrompt = "You are an AI assistant that extracts action items from meeting transcripts. " +
	"Be specific and actionable in your extractions."

const actionItemsPrompt = `Analyze the following meeting transcript and extract action items.
Format your response as a JSON array of action items with the following structure:
[
  {
    "task": "The specific task to be done",
    "assignee": "Person responsible (or 'Team' if not specified)",
    "dueDate": "YYYY-MM-DD or 'ASAP' if not specified",
    "priority": "low/medium/high",
    "status": "pending",
    "notes": "Any additional context or details"
  }
]

Here is the transcript:
`

// ActionItemExtractor produces cached action item lists.
//
// Every extracted item gets an ID of the form action-<unix-ms>-<index> and
// starts pending. Missing priorities become medium and missing assignees
// Unassigned. A cache hit returns the items exactly as first extracted.
type ActionItemExtractor struct {
	e *engine
}

// NewActionItemExtractor creates an ActionItemExtractor that caches through
// loader.
func NewActionItemExtractor(completer provider.Completer, loader *cache.Loader, opts ...Option) *ActionItemExtractor {
	return &ActionItemExtractor{e: newEngine(completer, loader, opts)}
}

// Key returns the cache key Extract uses for transcript and opts.
func (x *ActionItemExtractor) Key(transcript string, opts Options) string {
	return x.e.key(KindActionItems, transcript, opts)
}

// Extract returns the action items found in transcript.
func (x *ActionItemExtractor) Extract(ctx context.Context, transcript string, opts Options) ([]ActionItem, error) {
	return run(ctx, x.e, call[[]ActionItem]{
		kind:   KindActionItems,
		system: actionItemsSystemPrompt,
		prompt: func(t string) string { return actionItemsPrompt + t },
		parse:  x.parse,
	}, transcript, opts)
}

func (x *ActionItemExtractor) parse(content string) ([]ActionItem, error) {
	var items []ActionItem
	if err := decodeJSON(content, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, ErrParseResponse
	}

	stamp := x.e.now().UnixMilli()
	for i := range items {
		item := &items[i]
		item.ID = fmt.Sprintf("action-%d-%d", stamp, i)
		item.Status = StatusPending
		item.Priority = Priority(strings.ToLower(string(item.Priority)))
		if item.Priority == "" {
			item.Priority = PriorityMedium
		}
		if strings.TrimSpace(item.Assignee) == "" {
			item.Assignee = UnassignedOwner
		}
	}
	return items, nil
}
