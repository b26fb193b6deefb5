package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/you/tg-faceswap/internal/config"
	"github.com/you/tg-faceswap/internal/runner"
	"github.com/you/tg-faceswap/internal/store"
)

// Runs the face-swap command directly against two local files, bypassing the
// bot and the store. Handy for checking the runner setup on a new box.
func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: go run ./cmd/localswap <source.jpg> <target.jpg|mp4> <out>")
		return
	}
	_ = godotenv.Load()
	c := config.Load()

	cmd := runner.SwapCommand{Runtime: c.SwapRuntime, Script: c.SwapScript}.Build(
		context.Background(),
		store.Job{SourcePath: os.Args[1], TargetPath: os.Args[2], ResultPath: os.Args[3]},
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Println("swap failed:", err)
		os.Exit(1)
	}
	fmt.Println("Generated:", os.Args[3])
}
