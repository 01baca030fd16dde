package server

import (
	"context"
	"testing"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/rs/zerolog"
)

func TestStartRequiresHTTPServer(t *testing.T) {
	logger := zerolog.Nop()
	s := &Server{Config: &config.Config{}, Logger: &logger}
	if err := s.Start(); err == nil {
		t.Fatal("expected an error before SetupHTTPServer")
	}
}

func TestShutdownWithoutOptionalDependencies(t *testing.T) {
	s := &Server{}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown = %v", err)
	}
	if err := s.StartJobs(); err != nil {
		t.Fatalf("StartJobs without jobs = %v", err)
	}
}
