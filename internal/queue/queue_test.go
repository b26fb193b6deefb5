package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/you/tg-faceswap/internal/store"
)

func TestFIFOOrder(t *testing.T) {
	q := New()
	for i := int64(1); i <= 3; i++ {
		q.Enqueue(store.Job{ID: i})
	}
	if q.Len() != 3 {
		t.Fatalf("len = %d, want 3", q.Len())
	}

	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		j, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if j.ID != want {
			t.Fatalf("dequeued %d, want %d", j.ID, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("len = %d after draining", q.Len())
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()
	got := make(chan store.Job, 1)
	go func() {
		j, err := q.Dequeue(context.Background())
		if err != nil {
			return
		}
		got <- j
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned before enqueue")
	case <-time.After(20 * time.Millisecond):
	}

	q.Enqueue(store.Job{ID: 9})
	select {
	case j := <-got:
		if j.ID != 9 {
			t.Fatalf("dequeued %d, want 9", j.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake after enqueue")
	}
}

func TestDequeueHonorsContext(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Dequeue(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestLoadPendingPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	st := store.NewMem()
	_ = st.RegisterUserIfAbsent(ctx, 1, "")
	id1, _ := st.CreateJob(ctx, 1, "s1", "t1", "r1")
	id2, _ := st.CreateJob(ctx, 1, "s2", "t2", "r2")

	q := New()
	n, err := q.LoadPending(ctx, st)
	if err != nil {
		t.Fatalf("LoadPending: %v", err)
	}
	if n != 2 || q.Len() != 2 {
		t.Fatalf("loaded %d (len %d), want 2", n, q.Len())
	}
	first, _ := q.Dequeue(ctx)
	second, _ := q.Dequeue(ctx)
	if first.ID != id1 || second.ID != id2 {
		t.Fatalf("recovered order [%d %d], want [%d %d]", first.ID, second.ID, id1, id2)
	}
}
