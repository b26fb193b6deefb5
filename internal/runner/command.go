package runner

import (
	"context"
	"os/exec"

	"github.com/you/tg-faceswap/internal/store"
)

// Command builds the external transform invocation for a job.
type Command interface {
	Build(ctx context.Context, job store.Job) *exec.Cmd
}

// SwapCommand invokes the face-swap runner script.
type SwapCommand struct {
	Runtime string // e.g. python3
	Script  string
}

func (c SwapCommand) Build(ctx context.Context, job store.Job) *exec.Cmd {
	return exec.CommandContext(ctx, c.Runtime, c.Script,
		"--target", job.TargetPath,
		"--source", job.SourcePath,
		"-o", job.ResultPath,
		"--execution-provider", "cuda",
		"--keep-fps",
		"--output-video-quality", "1",
		"--frame-processor", "face_swapper",
	)
}

// LipSyncCommand invokes the lip-sync runner script. The target path is a
// prompt file carrying the text and language.
type LipSyncCommand struct {
	Runtime string
	Script  string
}

func (c LipSyncCommand) Build(ctx context.Context, job store.Job) *exec.Cmd {
	return exec.CommandContext(ctx, c.Runtime, c.Script,
		"--face", job.SourcePath,
		"--input", job.TargetPath,
		"-o", job.ResultPath,
		"--execution-provider", "cuda",
	)
}
