package settle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sseHandler(t *testing.T, events []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer must support flushing")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, ev := range events {
			fmt.Fprint(w, ev)
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
		<-r.Context().Done()
	}
}

func TestStreamerResolvesOnTerminalEvent(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		"event: heartbeat\ndata: {}\n\n",
		"data: {\"status\":\"PENDING\"}\n\n",
		"data: {\"status\":\"COMPLETED\",\"data\":{\"receipt\":\"R123\"}}\n\n",
	}))
	defer srv.Close()

	s := NewStreamer(func(code string) string { return srv.URL + "/status/" + code },
		StreamerOptions{Deadline: 5 * time.Second}, noopLogger())

	res, err := s.Await(context.Background(), "code-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCompleted || res.Receipt != "R123" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestStreamerFailedEvent(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		"data: {\"status\":\"failed\",\"message\":\"rejected\"}\n\n",
	}))
	defer srv.Close()

	s := NewStreamer(func(code string) string { return srv.URL + "/status/" + code },
		StreamerOptions{Deadline: 5 * time.Second}, noopLogger())

	res, err := s.Await(context.Background(), "code-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusFailed || res.Message != "rejected" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestStreamerDeadlineIsUnresolved(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		"event: heartbeat\ndata: {}\n\n",
	}))
	defer srv.Close()

	s := NewStreamer(func(code string) string { return srv.URL + "/status/" + code },
		StreamerOptions{Deadline: 100 * time.Millisecond}, noopLogger())

	_, err := s.Await(context.Background(), "code-1")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("超时应返回 ErrUnresolved, got %v", err)
	}
}
