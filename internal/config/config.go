package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the bot binaries read from the environment.
type Config struct {
	BotToken    string
	DatabaseURL string
	RedisAddr   string // empty = in-memory sessions
	OpsAddr     string

	UserDir string // per-user working directories live under here

	SwapRuntime string // interpreter for the transform script, e.g. python3
	SwapScript  string
	FFProbeBin  string

	UsageQuota       int
	ImageDocMaxBytes int64
	VideoMaxBytes    int64
	VideoMaxDuration time.Duration
}

func Getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func MustInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func MustBool(k string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return def
}

// Load reads the environment (godotenv.Load is the caller's job).
func Load() Config {
	return Config{
		BotToken:    os.Getenv("BOT_TOKEN"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		OpsAddr:     Getenv("OPS_ADDR", ":8080"),

		UserDir: Getenv("USER_DIR", "/data/users"),

		SwapRuntime: Getenv("SWAP_RUNTIME", "python3"),
		SwapScript:  Getenv("SWAP_SCRIPT", "run.py"),
		FFProbeBin:  Getenv("FFPROBE_BIN", "ffprobe"),

		UsageQuota:       MustInt("USAGE_QUOTA", 5),
		ImageDocMaxBytes: int64(MustInt("IMAGE_DOC_MAX_MB", 5)) * 1024 * 1024,
		VideoMaxBytes:    int64(MustInt("VIDEO_MAX_MB", 200)) * 1024 * 1024,
		VideoMaxDuration: time.Duration(MustInt("VIDEO_MAX_SECONDS", 15)) * time.Second,
	}
}
