package llmprovider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/llm"
)

func TestCreateChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	resp, err := client.CreateChatCompletion(context.Background(), llm.ChatCompletionRequest{
		Model:    "test-model",
		Messages: []llm.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion() error = %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "hello" {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateChatCompletionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	if _, err := client.CreateChatCompletion(context.Background(), llm.ChatCompletionRequest{}); err == nil {
		t.Fatal("CreateChatCompletion() succeeded, want error")
	}
}

func TestCreateChatCompletionStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, ": keep-alive comment\n")
		io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"Hel\"}}]}\n\n")
		io.WriteString(w, "data: not-json\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	stream, err := client.CreateChatCompletionStream(context.Background(), llm.ChatCompletionRequest{
		Model:    "test-model",
		Messages: []llm.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletionStream() error = %v", err)
	}
	defer stream.Close()

	var content string
	var chunks int
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		chunks++
		for _, c := range delta.Choices {
			content += c.Delta.Content
		}
	}

	if chunks != 2 {
		t.Errorf("chunks = %d, want 2 (malformed chunk skipped)", chunks)
	}
	if content != "Hello" {
		t.Errorf("content = %q, want Hello", content)
	}
}

func TestCreateChatCompletionStreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream exploded")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	if _, err := client.CreateChatCompletionStream(context.Background(), llm.ChatCompletionRequest{}); err == nil {
		t.Fatal("CreateChatCompletionStream() succeeded, want error")
	}
}
