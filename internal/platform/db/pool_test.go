package db

import (
	"context"
	"testing"
)

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), PoolConfig{URL: "://not-a-url"})
	if err == nil {
		t.Fatal("expected error for an invalid database url")
	}
}
