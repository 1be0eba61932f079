package opensearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/livecap/livecap/internal/history"
)

func TestOpenSearchSink_Send(t *testing.T) {
	var receivedBody []byte
	var receivedURL string
	var receivedMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedURL = r.URL.Path
		receivedBody, _ = io.ReadAll(r.Body)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"test","_index":"recording-events","result":"created"}`))
	}))
	defer server.Close()

	sink := New(server.URL, "recording-events")

	event := history.Event{
		Type:       history.EventStart,
		OccurredAt: time.Now().UTC(),
		URL:        "https://live.douyin.com/1",
		Platform:   "Douyin",
		Anchor:     "anchor",
		Path:       "/data/a.ts",
		StartMs:    123,
	}
	if err := sink.Send(context.Background(), event); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if receivedMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", receivedMethod)
	}
	if receivedURL != "/recording-events/_doc" {
		t.Fatalf("unexpected path %s", receivedURL)
	}

	var got history.Event
	if err := json.Unmarshal(receivedBody, &got); err != nil {
		t.Fatalf("body is not an event: %v", err)
	}
	if got.URL != event.URL || got.Type != history.EventStart {
		t.Fatalf("unexpected event payload: %+v", got)
	}
}

func TestOpenSearchSink_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := New(server.URL, "recording-events")
	if err := sink.Send(context.Background(), history.Event{Type: history.EventStart}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
