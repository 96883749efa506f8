package http

import (
	"context"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestServer_RunStopsOnCancel(t *testing.T) {
	e := echo.New()
	srv := NewServer(e, "0", time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop after cancel")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	srv := NewServer(echo.New(), "not-a-port", time.Second, zerolog.Nop())

	select {
	case err := <-runAsync(srv):
		if err == nil {
			t.Fatalf("expected listen error")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("expected Run to return")
	}
}

func TestNewServer_DefaultShutdownTimeout(t *testing.T) {
	srv := NewServer(echo.New(), "8080", 0, zerolog.Nop())
	if srv.shutdownTimeout != defaultShutdownTimeout || srv.addr != ":8080" {
		t.Fatalf("unexpected server config: %+v", srv)
	}
}

func runAsync(srv *Server) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- srv.Run(context.Background()) }()
	return ch
}
