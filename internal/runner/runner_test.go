package runner

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/you/tg-faceswap/internal/queue"
	"github.com/you/tg-faceswap/internal/store"
)

// scriptCommand runs a shell snippet instead of the real transform.
type scriptCommand struct {
	script string
}

func (c scriptCommand) Build(ctx context.Context, _ store.Job) *exec.Cmd {
	return exec.CommandContext(ctx, "sh", "-c", c.script)
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
	files []string
}

func (n *fakeNotifier) SendText(_ int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

func (n *fakeNotifier) SendFile(_ int64, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.files = append(n.files, path)
	return nil
}

func (n *fakeNotifier) lastText(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.texts) == 0 {
		t.Fatal("no text sent")
	}
	return n.texts[len(n.texts)-1]
}

func newJob(t *testing.T, st *store.Mem) store.Job {
	t.Helper()
	ctx := context.Background()
	_ = st.RegisterUserIfAbsent(ctx, 1, "")
	id, err := st.CreateJob(ctx, 1, "src.jpg", "tgt.jpg", "result_1.jpg")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	j, _ := st.GetJob(id)
	return j
}

func TestProcessSuccess(t *testing.T) {
	st := store.NewMem()
	n := &fakeNotifier{}
	r := New(st, queue.New(), scriptCommand{script: "echo done"}, n)

	job := newJob(t, st)
	r.process(context.Background(), job)

	got, _ := st.GetJob(job.ID)
	if got.Status != store.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.ProcessingStartedAt == nil || got.ProcessingFinishedAt == nil {
		t.Fatalf("timestamps missing: %+v", got)
	}
	if len(n.files) != 1 || n.files[0] != job.ResultPath {
		t.Fatalf("result artifact not delivered: %+v", n.files)
	}
	if n.lastText(t) != "Here's your result! /start to try again." {
		t.Fatalf("success notice = %q", n.lastText(t))
	}
	if r.Processed() != 1 || r.Failed() != 0 {
		t.Fatalf("counters = %d/%d", r.Processed(), r.Failed())
	}
}

func TestProcessNonZeroExit(t *testing.T) {
	st := store.NewMem()
	n := &fakeNotifier{}
	r := New(st, queue.New(), scriptCommand{script: "echo broken pipe >&2; exit 3"}, n)

	job := newJob(t, st)
	r.process(context.Background(), job)

	got, _ := st.GetJob(job.ID)
	if got.Status != store.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage == nil ||
		!strings.Contains(*got.ErrorMessage, "exit code 3") ||
		!strings.Contains(*got.ErrorMessage, "broken pipe") {
		t.Fatalf("error message = %v", got.ErrorMessage)
	}
	if !strings.HasPrefix(n.lastText(t), "Error: ") {
		t.Fatalf("failure notice = %q", n.lastText(t))
	}
	if r.Failed() != 1 {
		t.Fatalf("failed counter = %d", r.Failed())
	}
}

// The script exits 0 but prints the no-face diagnostic; the job must still
// fail with the domain message.
func TestProcessNoFaceDiagnostic(t *testing.T) {
	st := store.NewMem()
	n := &fakeNotifier{}
	r := New(st, queue.New(), scriptCommand{script: "echo '" + NoFaceDiagnostic + "'"}, n)
	r.DomainFailure.Marker = NoFaceDiagnostic
	r.DomainFailure.Message = NoFaceMessage

	job := newJob(t, st)
	r.process(context.Background(), job)

	got, _ := st.GetJob(job.ID)
	if got.Status != store.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != NoFaceMessage {
		t.Fatalf("error message = %v, want %q", got.ErrorMessage, NoFaceMessage)
	}
	if !strings.Contains(n.lastText(t), NoFaceMessage) {
		t.Fatalf("failure notice = %q", n.lastText(t))
	}
}

func TestRunConsumesQueue(t *testing.T) {
	st := store.NewMem()
	n := &fakeNotifier{}
	q := queue.New()
	r := New(st, q, scriptCommand{script: "true"}, n)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()

	job := newJob(t, st)
	q.Enqueue(job)

	deadline := time.After(5 * time.Second)
	for r.Processed() == 0 {
		select {
		case <-deadline:
			t.Fatal("runner did not process the job")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	got, _ := st.GetJob(job.ID)
	if got.Status != store.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
}
