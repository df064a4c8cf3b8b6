package store

import (
	"context"
	"errors"
	"time"

	"enquirydesk/internal/metrics"
)

// Instrumented wraps a KV and records call counts and latency per backend.
// A Get miss is not counted as an error.
type Instrumented struct {
	next    KV
	backend string
}

func NewInstrumented(next KV, backend string) *Instrumented {
	return &Instrumented{next: next, backend: backend}
}

func (i *Instrumented) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := i.next.Set(ctx, key, value)
	metrics.RecordStoreOperation(i.backend, "set", time.Since(start), err)
	return err
}

func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := i.next.Get(ctx, key)
	recorded := err
	if errors.Is(err, ErrNotFound) {
		recorded = nil
	}
	metrics.RecordStoreOperation(i.backend, "get", time.Since(start), recorded)
	return v, err
}

func (i *Instrumented) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	start := time.Now()
	v, err := i.next.GetByPrefix(ctx, prefix)
	metrics.RecordStoreOperation(i.backend, "get_by_prefix", time.Since(start), err)
	return v, err
}

func (i *Instrumented) Del(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Del(ctx, key)
	metrics.RecordStoreOperation(i.backend, "del", time.Since(start), err)
	return err
}
