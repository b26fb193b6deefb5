// Package runner is the single sequential consumer of the job queue. It
// invokes the external transform per job and reports the outcome back to the
// store and to the requesting user.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/you/tg-faceswap/internal/logx"
	"github.com/you/tg-faceswap/internal/queue"
	"github.com/you/tg-faceswap/internal/store"
)

// The face-swap script exits 0 even when it could not find a face; the only
// signal is this line on stdout.
const (
	NoFaceDiagnostic = "No face in source path detected."
	NoFaceMessage    = "No face in the 1st photo detected."
)

// Notifier delivers outcome messages and result artifacts to the user.
// Delivery failures are logged and swallowed; they must not fail the job.
type Notifier interface {
	SendText(chatID int64, text string) error
	SendFile(chatID int64, path string) error
}

// Runner processes exactly one job at a time. No parallelism, no job-level
// timeout, no retry on failure.
type Runner struct {
	store  store.Store
	queue  *queue.Queue
	cmd    Command
	notify Notifier

	// DomainFailure marks a success exit as failed when its combined stdout
	// contains Marker. Zero value disables the check.
	DomainFailure struct {
		Marker  string
		Message string
	}

	processed atomic.Uint64
	failed    atomic.Uint64
}

func New(s store.Store, q *queue.Queue, c Command, n Notifier) *Runner {
	return &Runner{store: s, queue: q, cmd: c, notify: n}
}

func (r *Runner) Processed() uint64 { return r.processed.Load() }
func (r *Runner) Failed() uint64    { return r.failed.Load() }

// Run consumes the queue until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	for {
		job, err := r.queue.Dequeue(ctx)
		if err != nil {
			return err
		}
		r.process(ctx, job)
	}
}

func (r *Runner) process(ctx context.Context, job store.Job) {
	l := log.With().Int64("job_id", job.ID).Int64("user_id", job.UserID).Logger()
	l.Info().Msg("processing job")

	if err := r.store.MarkProcessing(ctx, job.ID); err != nil {
		l.Error().Err(err).Msg("mark processing failed")
		return
	}

	if err := r.transform(ctx, job); err != nil {
		r.failed.Add(1)
		l.Error().Err(err).Msg("job failed")
		if serr := r.store.MarkFailed(ctx, job.ID, err.Error()); serr != nil {
			l.Error().Err(serr).Msg("mark failed failed")
		}
		r.send(l, job.UserID, fmt.Sprintf("Error: %s\n/start to try again.", err))
		return
	}

	r.processed.Add(1)
	if err := r.store.MarkCompleted(ctx, job.ID); err != nil {
		l.Error().Err(err).Msg("mark completed failed")
	}
	if err := r.notify.SendFile(job.UserID, job.ResultPath); err != nil {
		l.Warn().Err(err).Msg("result delivery failed")
	}
	r.send(l, job.UserID, "Here's your result! /start to try again.")
	l.Info().Msg("job completed")
}

// transform runs the external program and interprets its outcome: non-zero
// exit fails with stderr attached, and a success exit still fails when the
// domain-failure marker shows up in stdout.
func (r *Runner) transform(ctx context.Context, job store.Job) error {
	cmd := r.cmd.Build(ctx, job)
	log.Info().Str("cmd", strings.Join(cmd.Args, " ")).Msg("running command")

	var stdout, stderr bytes.Buffer
	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start transform: %w", err)
	}

	fields := map[string]string{"job_id": strconv.FormatInt(job.ID, 10), "stream": "transform"}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		logx.NewLineWriter(fields, zerolog.DebugLevel).Pipe(io.TeeReader(outPipe, &stdout))
	}()
	go func() {
		defer wg.Done()
		logx.NewLineWriter(fields, zerolog.ErrorLevel).Pipe(io.TeeReader(errPipe, &stderr))
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("subprocess failed with exit code %d: %s",
				exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("run transform: %w", err)
	}

	if m := r.DomainFailure.Marker; m != "" && strings.Contains(stdout.String(), m) {
		return errors.New(r.DomainFailure.Message)
	}
	return nil
}

func (r *Runner) send(l zerolog.Logger, chatID int64, text string) {
	if err := r.notify.SendText(chatID, text); err != nil {
		l.Warn().Err(err).Msg("notify failed")
	}
}
