package acidlist

import (
	"context"
	"testing"
	"time"
)

// closeList closes l within a bounded deadline and fails the test if the
// sweeper doesn't drain in time.
func closeList[T comparable](t *testing.T, l *List[T]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// collectValues drains a List front-to-back into a slice via Begin/Next,
// closing every iterator it creates along the way.
func collectValues[T comparable](l *List[T]) []T {
	var out []T
	it := l.Begin()
	end := l.End()
	defer end.Close()
	for !it.Equal(end) {
		out = append(out, it.Get())
		it.Next()
	}
	it.Close()
	return out
}
