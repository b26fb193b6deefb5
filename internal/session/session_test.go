package session

import (
	"context"
	"testing"
)

func TestMemRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMem()

	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateIdle || got.SourcePath != "" {
		t.Fatalf("missing session should read as zero, got %+v", got)
	}

	want := Session{State: StateAwaitSecond, SourcePath: "/data/users/1/abc.jpg"}
	if err := s.Put(ctx, 1, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ = s.Get(ctx, 1)
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}

	if err := s.Reset(ctx, 1); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, _ = s.Get(ctx, 1)
	if got.State != StateIdle {
		t.Fatalf("reset session = %+v, want idle", got)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:        "idle",
		StateAwaitFirst:  "await_first",
		StateAwaitSecond: "await_second",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Fatalf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
