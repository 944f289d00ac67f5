package sse

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mcoot/partycasino/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "game.updated",
			data:      `{"id":"g1"}`,
			expected:  "event: game.updated\ndata: {\"id\":\"g1\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "player.updated",
			data:      "{\n  \"id\": \"p1\"\n}",
			expected:  "event: player.updated\ndata: {\ndata:   \"id\": \"p1\"\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatSSEMessage(tt.eventName, tt.data)
			if string(result) != tt.expected {
				t.Errorf("formatSSEMessage(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "single line", input: "hello", expected: []string{"hello"}},
		{name: "two lines", input: "line1\nline2", expected: []string{"line1", "line2"}},
		{name: "trailing newline", input: "line1\n", expected: []string{"line1"}},
		{name: "empty string", input: "", expected: []string{""}},
		{name: "crlf line endings", input: "line1\r\nline2\r\n", expected: []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitLines(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("splitLines(%q) returned %d lines, want %d",
					tt.input, len(result), len(tt.expected))
				return
			}
			for i, line := range result {
				if line != tt.expected[i] {
					t.Errorf("splitLines(%q)[%d] = %q, want %q",
						tt.input, i, line, tt.expected[i])
				}
			}
		})
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub(nil, testLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient("test")
	hub.Register(client)

	// Give the hub time to process registration
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.BroadcastEvent("test-event", "test data")

	select {
	case msg := <-client.send:
		expected := "event: test-event\ndata: test data\n\n"
		if string(msg) != expected {
			t.Errorf("client received %q, want %q", string(msg), expected)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("client did not receive message")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(nil, testLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient("test")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after unregister, want 0", hub.ClientCount())
	}
}

func TestHub_PublishEncodesEvent(t *testing.T) {
	encode := func(e model.Event) ([]byte, error) {
		return []byte(`{"entity":"` + e.EntityID + `"}`), nil
	}
	hub := NewHub(encode, testLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient("test")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	err := hub.Publish(context.Background(), model.Event{Type: model.EventGameUpdated, EntityID: "g1"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-client.send:
		expected := "event: game.updated\ndata: {\"entity\":\"g1\"}\n\n"
		if string(msg) != expected {
			t.Errorf("client received %q, want %q", string(msg), expected)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("client did not receive event")
	}
}

func TestHub_RegisterAfterClose(t *testing.T) {
	hub := NewHub(nil, testLogger())
	go hub.Run()
	hub.Close()

	if hub.Register(NewClient("late")) {
		t.Error("Register() succeeded on a closed hub")
	}
}

func TestServeSSE_StreamsEvents(t *testing.T) {
	hub := NewHub(nil, testLogger())
	go hub.Run()
	defer hub.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, hub)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	// Wait for the connected event before broadcasting
	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read connected event: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "event: connected") {
		t.Fatalf("first message = %q, want connected event", string(buf[:n]))
	}

	time.Sleep(10 * time.Millisecond)
	hub.BroadcastEvent("player.updated", `{"id":"p1"}`)

	n, err = resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "event: player.updated") {
		t.Errorf("received %q, want player.updated event", string(buf[:n]))
	}
}
