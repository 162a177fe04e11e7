package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClientGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"category\":\"Food\"}  "}}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "key", "", time.Second, nil)
	out, err := c.Generate(context.Background(), "be terse", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"category":"Food"}` {
		t.Fatalf("unexpected output %q", out)
	}
	if got.Model != "gpt-3.5-turbo" || got.Temperature != 0.3 || got.MaxTokens != 150 {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hello" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestHTTPClientErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"api error": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		},
		"timeout": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := NewHTTPClient(srv.URL, "key", "m", 50*time.Millisecond, nil)
			_, err := c.Generate(context.Background(), "", "hi")
			if err == nil {
				t.Fatal("expected error")
			}
			if name == "status" && !strings.Contains(err.Error(), "429") {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}
