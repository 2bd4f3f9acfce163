package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonwraymond/aicache/resilience"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithAPIKey("sk-test"), WithHTTPClient(srv.Client()))
}

func TestClient_Complete(t *testing.T) {
	temp := 0.3
	var got ChatRequest
	c := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chat/completions" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"Sync\"}"}}]}`))
	})

	content, err := c.Complete(context.Background(), ChatRequest{
		Model:       "gpt-4",
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Temperature: &temp,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if content != `{"title":"Sync"}` {
		t.Errorf("content = %q", content)
	}
	if got.Model != "gpt-4" || got.MaxTokens != 1000 || got.Temperature == nil || *got.Temperature != 0.3 {
		t.Errorf("upstream saw %+v", got)
	}
}

func TestClient_EmptyResponse(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `{"choices":[{"message":{"content":""}}]}`} {
		c := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		if _, err := c.Complete(context.Background(), ChatRequest{Model: "gpt-4"}); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("body %s: err = %v, want ErrEmptyResponse", body, err)
		}
	}
}

func TestClient_StatusError(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		c := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.code)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		})

		_, err := c.Complete(context.Background(), ChatRequest{Model: "gpt-4"})
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("%d: err = %v, want *StatusError", tt.code, err)
		}
		if se.StatusCode != tt.code || se.Message != "nope" {
			t.Errorf("StatusError = %+v", se)
		}
		if got := resilience.IsRetryable(err); got != tt.retryable {
			t.Errorf("%d: IsRetryable = %v, want %v", tt.code, got, tt.retryable)
		}
	}
}

func TestClient_MalformedBody(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	if _, err := c.Complete(context.Background(), ChatRequest{Model: "gpt-4"}); err == nil {
		t.Error("malformed body should fail")
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Complete(ctx, ChatRequest{Model: "gpt-4"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{StatusCode: http.StatusBadGateway}
	if err.Error() != "provider: upstream returned 502 Bad Gateway" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestCompleterFunc(t *testing.T) {
	var c Completer = CompleterFunc(func(_ context.Context, req ChatRequest) (string, error) {
		return req.Model, nil
	})
	if got, _ := c.Complete(context.Background(), ChatRequest{Model: "m"}); got != "m" {
		t.Errorf("Complete() = %q", got)
	}
}
