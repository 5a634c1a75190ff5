package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTaskQueueOrder(t *testing.T) {
	q := NewTaskQueue(4)
	defer q.Stop()

	var got []int
	for i := 0; i < 50; i++ {
		if !q.Post(func() { got = append(got, i) }) {
			t.Fatalf("Post(%d) refused", i)
		}
	}
	// Do runs after everything posted before it.
	var n int
	if err := q.Do(context.Background(), func() error { n = len(got); return nil }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if n != 50 {
		t.Fatalf("Do ran after %d tasks, want 50", n)
	}

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskQueueDoReturnsError(t *testing.T) {
	q := NewTaskQueue(1)
	defer q.Stop()

	boom := errors.New("boom")
	if err := q.Do(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Do error = %v, want %v", err, boom)
	}
}

func TestTaskQueueDoContext(t *testing.T) {
	q := NewTaskQueue(1)
	defer q.Stop()

	release := make(chan struct{})
	q.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Do(ctx, func() error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do error = %v, want deadline exceeded", err)
	}
}

func TestTaskQueueStop(t *testing.T) {
	q := NewTaskQueue(1)
	q.Stop()
	q.Stop()

	if q.Post(func() {}) {
		t.Errorf("Post accepted a task after Stop")
	}
	if err := q.Do(context.Background(), func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Errorf("Do error = %v, want ErrStopped", err)
	}
}
