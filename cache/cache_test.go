package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type summary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid", "meeting-summary:99162322", nil},
		{"empty", "", ErrInvalidKey},
		{"whitespace", "   ", ErrInvalidKey},
		{"newline", "a\nb", ErrInvalidKey},
		{"carriage return", "a\rb", ErrInvalidKey},
		{"max length", strings.Repeat("k", MaxKeyLength), nil},
		{"too long", strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestEntry_Expired(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := &Entry{Key: "k", Timestamp: ts, TTL: time.Minute}

	if !e.ExpiresAt().Equal(ts.Add(time.Minute)) {
		t.Errorf("ExpiresAt() = %v", e.ExpiresAt())
	}
	if e.Expired(ts.Add(59 * time.Second)) {
		t.Error("entry should be live before its deadline")
	}
	if !e.Expired(ts.Add(time.Minute)) {
		t.Error("entry should be expired exactly at its deadline")
	}
}

func TestStats_HitRatio(t *testing.T) {
	if got := (Stats{}).HitRatio(); got != 0 {
		t.Errorf("HitRatio() on empty stats = %v, want 0", got)
	}
	if got := (Stats{Hits: 3, Misses: 1}).HitRatio(); got != 0.75 {
		t.Errorf("HitRatio() = %v, want 0.75", got)
	}
}

func TestStats_JSON(t *testing.T) {
	data, err := json.Marshal(Stats{Size: 2, Max: 100})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["size"] != float64(2) || m["max"] != float64(100) {
		t.Errorf("unexpected stats JSON: %s", data)
	}
}

func TestGetAs(t *testing.T) {
	c := New(DefaultPolicy())
	ctx := context.Background()

	want := summary{Summary: "Shipped v2", KeyPoints: []string{"launch", "docs"}}
	c.Set(ctx, "meeting-summary:1", want, 0)

	got, ok := GetAs[summary](ctx, c, "meeting-summary:1")
	if !ok {
		t.Fatal("GetAs should hit")
	}
	if got.Summary != want.Summary || len(got.KeyPoints) != 2 {
		t.Errorf("GetAs() = %+v, want %+v", got, want)
	}

	if _, ok := GetAs[summary](ctx, c, "meeting-summary:missing"); ok {
		t.Error("GetAs on missing key should miss")
	}
}

func TestGetAs_DecodeFailureIsMiss(t *testing.T) {
	c := New(DefaultPolicy())
	ctx := context.Background()
	c.Set(ctx, "k", "just a string", 0)

	if _, ok := GetAs[summary](ctx, c, "k"); ok {
		t.Error("a value of the wrong shape should be reported as a miss")
	}
}

func TestGetAs_NilStore(t *testing.T) {
	if _, ok := GetAs[string](context.Background(), nil, "k"); ok {
		t.Error("nil store should always miss")
	}
}
