package session

import (
	"context"
	"testing"
)

func TestNewStoreDefaultsToInMemory(t *testing.T) {
	store, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, ok := store.(*InMemoryStore); !ok {
		t.Fatalf("NewStore() = %T, want *InMemoryStore", store)
	}
}
