package secret

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownProvider is returned for a secretref naming no registered provider.
	ErrUnknownProvider = errors.New("secret: provider is not registered")

	// ErrEmptySecret is returned when a provider resolves to an empty value.
	ErrEmptySecret = errors.New("secret: provider returned empty value")
)

const refPrefix = "secretref:"

// Resolver turns configuration values into their final form.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a resolver with the given providers.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Resolver) Register(p Provider) {
	if p != nil {
		r.providers[p.Name()] = p
	}
}

// ResolveValue expands environment variables in value and, if the result is
// a secret reference, resolves it. Plain values are returned expanded.
// A nil Resolver only expands.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}

	name, ref, ok := ParseSecretRef(expanded)
	if !ok {
		return expanded, nil
	}
	if r == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptySecret, name)
	}
	return v, nil
}

// ParseSecretRef splits secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}
