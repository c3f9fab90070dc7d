package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"
)

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)
}

func TestDrain_StopsComponentsInReverseOrder(t *testing.T) {
	s := newTestServer()

	var order []string
	s.OnShutdown("database", func(ctx context.Context) error {
		order = append(order, "database")
		return nil
	})
	s.OnShutdown("worker", func(ctx context.Context) error {
		order = append(order, "worker")
		return nil
	})

	if err := s.drain(); err != nil {
		t.Fatalf("drain() error = %v", err)
	}

	want := []string{"worker", "database"}
	if len(order) != len(want) {
		t.Fatalf("shutdown order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("shutdown order = %v, want %v", order, want)
		}
	}
}

func TestDrain_FailedComponentDoesNotStopOthers(t *testing.T) {
	s := newTestServer()

	databaseClosed := false
	s.OnShutdown("database", func(ctx context.Context) error {
		databaseClosed = true
		return nil
	})
	s.OnShutdown("worker", func(ctx context.Context) error {
		return errors.New("still busy")
	})

	err := s.drain()
	if err == nil {
		t.Fatal("drain() error = nil, want worker failure")
	}
	if !strings.Contains(err.Error(), "worker") {
		t.Errorf("error %q does not name the failed component", err)
	}
	if !databaseClosed {
		t.Error("database hook was skipped after worker failure")
	}
}
