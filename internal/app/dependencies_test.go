package app

import (
	"context"
	"testing"
)

func TestNewDependencies_MemoryFallback(t *testing.T) {
	deps, err := NewDependencies(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Repo == nil {
		t.Error("expected order repository to be initialized")
	}
	if deps.OutboxRepo == nil {
		t.Error("expected outbox repository to be initialized")
	}
	if deps.ProcessedRepo == nil {
		t.Error("expected processed events repository to be initialized")
	}
	if deps.Store != nil {
		t.Error("expected no postgres store in memory mode")
	}

	// Close без postgres должен быть безопасным.
	deps.Close()
}

func TestDependencies_CloseNil(t *testing.T) {
	var deps *Dependencies
	deps.Close()
}
