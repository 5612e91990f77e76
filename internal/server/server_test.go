package server

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"8080":  ":8080",
		":9090": ":9090",
	}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestNewHTTPServer_WriteTimeout(t *testing.T) {
	h := http.NewServeMux()

	srv := newHTTPServer(":8080", h, 0)
	if srv.WriteTimeout != defaultWriteTimeout {
		t.Fatalf("default write timeout=%v", srv.WriteTimeout)
	}
	if srv.ReadHeaderTimeout != readHeaderTimeout || srv.MaxHeaderBytes != maxHeaderBytes {
		t.Fatalf("unexpected limits: %+v", srv)
	}

	srv = newHTTPServer(":8080", h, 2*time.Minute)
	if srv.WriteTimeout != 2*time.Minute {
		t.Fatalf("write timeout=%v", srv.WriteTimeout)
	}
}

func TestShutdown_BeforeRun(t *testing.T) {
	var s Server
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown without run: %v", err)
	}
}
