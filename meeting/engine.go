package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/observe"
	"github.com/jonwraymond/aicache/provider"
	"github.com/jonwraymond/aicache/resilience"
)

// Option configures a Summarizer or ActionItemExtractor.
type Option func(*engine)

// WithKeyer replaces the rolling keyer.
func WithKeyer(k cache.Keyer) Option {
	return func(e *engine) {
		if k != nil {
			e.keyer = k
		}
	}
}

// WithExecutor wraps every upstream call in exec.
func WithExecutor(exec *resilience.Executor) Option {
	return func(e *engine) { e.executor = exec }
}

// WithMiddleware records spans, metrics and logs for each call.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(e *engine) {
		if mw != nil {
			e.mw = mw
		}
	}
}

// WithDefaults sets the options used for unset fields. Fields left unset in
// defaults keep the package defaults.
func WithDefaults(defaults Options) Option {
	return func(e *engine) { e.defaults = defaults.resolve(DefaultOptions()) }
}

// WithProviderName labels telemetry with the upstream name.
func WithProviderName(name string) Option {
	return func(e *engine) { e.providerName = name }
}

// WithClock overrides the clock used for action item IDs.
func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
	}
}

type engine struct {
	completer    provider.Completer
	loader       *cache.Loader
	keyer        cache.Keyer
	executor     *resilience.Executor
	mw           *observe.Middleware
	defaults     Options
	providerName string
	now          func() time.Time
}

func newEngine(completer provider.Completer, loader *cache.Loader, opts []Option) *engine {
	e := &engine{
		completer:    completer,
		loader:       loader,
		keyer:        cache.RollingKeyer{},
		mw:           observe.NewMiddleware(nil, nil, nil),
		defaults:     DefaultOptions(),
		providerName: "openai",
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) key(kind, transcript string, opts Options) string {
	return e.keyer.Key(kind, cache.Signature(transcript, opts.resolve(e.defaults)))
}

// call is one cached model operation: a system prompt, a user prompt built
// from the transcript and a parser for the model's answer.
type call[T any] struct {
	kind   string
	system string
	prompt func(transcript string) string
	parse  func(content string) (T, error)
}

func run[T any](ctx context.Context, e *engine, c call[T], transcript string, opts Options) (T, error) {
	var out T
	if strings.TrimSpace(transcript) == "" {
		return out, ErrEmptyTranscript
	}

	resolved := opts.resolve(e.defaults)
	key := e.keyer.Key(c.kind, cache.Signature(transcript, resolved))
	op := observe.Operation{Kind: c.kind, Model: resolved.Model, Provider: e.providerName}
	logger := e.mw.Logger()

	err := e.mw.Run(ctx, op, func(ctx context.Context) (bool, error) {
		v, hit, err := cache.Remember(ctx, e.loader, key, ResultTTL, func(ctx context.Context) (T, error) {
			req := provider.ChatRequest{
				Model: resolved.Model,
				Messages: []provider.Message{
					{Role: "system", Content: c.system},
					{Role: "user", Content: c.prompt(transcript)},
				},
				Temperature: resolved.Temperature,
				MaxTokens:   resolved.MaxTokens,
			}
			content, err := resilience.Do(ctx, e.executor, func(ctx context.Context) (string, error) {
				return e.completer.Complete(ctx, req)
			})
			if err != nil {
				var zero T
				return zero, err
			}
			logger.Debug(ctx, "model response received",
				observe.Field{Key: "ai.kind", Value: c.kind},
				observe.Field{Key: "content_length", Value: len(content)},
			)
			return c.parse(content)
		})
		out = v
		return hit, err
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("meeting: %s: %w", c.kind, err)
	}
	return out, nil
}

// decodeJSON parses model output into v, tolerating a surrounding Markdown
// code fence.
func decodeJSON(content string, v any) error {
	s := strings.TrimSpace(content)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		// Drop the optional language tag on the opening fence.
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			rest = rest[i+1:]
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "```"))
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("%w: %w", ErrParseResponse, err)
	}
	return nil
}
