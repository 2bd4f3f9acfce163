// Package meeting turns meeting transcripts into structured results using a
// chat completion model, caching every answer.
//
// Summarizer produces a Summary and ActionItemExtractor a list of
// ActionItem values. Both follow the same path:
//
//	key := keyer.Key(kind, cache.Signature(transcript, resolvedOptions))
//	hit  -> return the cached result, no upstream call
//	miss -> resilience executor -> provider.Completer -> parse -> cache 1h
//
// Options take part in the key, so the same transcript summarized with a
// different model or temperature is a separate entry. Results that fail to
// parse return ErrParseResponse and are not cached.
package meeting
