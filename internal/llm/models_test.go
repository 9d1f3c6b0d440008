package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"mistral:7b"},{"name":""}]}`))
	}))
	defer srv.Close()

	c := &Client{provider: "ollama", ollamaHost: srv.URL}

	names, err := c.Models(context.Background())
	if err != nil {
		t.Fatalf("Models() error = %v", err)
	}

	want := []string{"llama3:latest", "mistral:7b"}
	if len(names) != len(want) {
		t.Fatalf("Models() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Models()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestModels_TrailingSlashHost(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	c := &Client{provider: "ollama", ollamaHost: srv.URL + "/"}

	if _, err := c.Models(context.Background()); err != nil {
		t.Fatalf("Models() error = %v", err)
	}
	if gotPath != "/api/tags" {
		t.Errorf("request path = %q, want /api/tags", gotPath)
	}
}

func TestModels_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{provider: "ollama", ollamaHost: srv.URL}

	if _, err := c.Models(context.Background()); err == nil {
		t.Error("Models() error = nil, want error on 500 response")
	}
}

func TestModels_UnsupportedProvider(t *testing.T) {
	c := &Client{provider: "gemini"}

	if _, err := c.Models(context.Background()); !errors.Is(err, ErrModelListUnsupported) {
		t.Errorf("Models() error = %v, want ErrModelListUnsupported", err)
	}
}
