package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DurationProber measures the duration of a downloaded artifact by decoding it.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// FFProbe measures duration with ffprobe.
type FFProbe struct {
	Bin string // default "ffprobe"
}

var _ DurationProber = FFProbe{}

func (f FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	bin := f.Bin
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %v: %s", path, err, strings.TrimSpace(errb.String()))
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe output %q: %w", out.String(), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
