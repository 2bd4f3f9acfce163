package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// Keyer derives deterministic cache keys from an operation kind and its raw
// input signature.
//
// Contract:
//   - Determinism: same inputs must produce same key across calls and restarts.
//   - Errors: Key never fails; any string (including "") yields a key.
//   - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key of the form <kind>:<hash>.
	Key(kind, input string) string
}

// RollingKeyer hashes the input with a 31-multiplier polynomial over UTF-16
// code units, folded to a signed 32-bit integer.
type RollingKeyer struct{}

// Key implements Keyer.
func (RollingKeyer) Key(kind, input string) string {
	return DeriveKey(kind, input)
}

// SHA256Keyer uses the first 8 bytes of SHA-256(input).
type SHA256Keyer struct{}

// Key implements Keyer. Format: <kind>:<16 hex chars>
func (SHA256Keyer) Key(kind, input string) string {
	sum := sha256.Sum256([]byte(input))
	return kind + ":" + hex.EncodeToString(sum[:8])
}

// Keyer names accepted by KeyerFor.
const (
	KeyHashRolling = "rolling"
	KeyHashSHA256  = "sha256"
)

// KeyerFor returns the keyer registered under name. An empty name selects
// the rolling keyer.
func KeyerFor(name string) (Keyer, error) {
	switch name {
	case "", KeyHashRolling:
		return RollingKeyer{}, nil
	case KeyHashSHA256:
		return SHA256Keyer{}, nil
	default:
		return nil, fmt.Errorf("cache: unknown key hash %q", name)
	}
}

// DeriveKey produces the key for (kind, input).
//
// The hash matches the h = (h<<5) - h + c recurrence over UTF-16 code units,
// so keys stay stable across processes. An empty input hashes to 0. Each byte
// of invalid UTF-8 hashes as the lone surrogate 0xDC00|b, which no valid
// input can produce on its own.
func DeriveKey(kind, input string) string {
	return kind + ":" + strconv.FormatInt(int64(rollingHash(input)), 10)
}

func rollingHash(s string) int32 {
	var h int32
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			r = 0xDC00 | rune(s[i])
		}
		i += size
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			h = h<<5 - h + hi
			h = h<<5 - h + lo
			continue
		}
		h = h<<5 - h + r
	}
	return h
}

// Signature joins an input with the canonical JSON form of options, so two
// calls with identical text but different options never share a key.
// Format: <input>-<canonical options JSON>
//
// Options that cannot be encoded fall back to their Go type name, so every
// unencodable value of one type shares a signature.
func Signature(input string, options any) string {
	canonical, err := canonicalize(options)
	if err != nil {
		// Values may hold pointers, so only the type is stable across runs.
		return input + "-" + fmt.Sprintf("%T", options)
	}
	return input + "-" + string(canonical)
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key to ensure consistent ordering.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		// Structs encode in field order; map[string]T is sorted by encoding/json.
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

var (
	_ Keyer = RollingKeyer{}
	_ Keyer = SHA256Keyer{}
)
