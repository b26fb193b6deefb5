// Package ops exposes the health/status endpoint served next to the bot.
package ops

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/you/tg-faceswap/internal/queue"
	"github.com/you/tg-faceswap/internal/runner"
)

type statusBody struct {
	QueueLen  int    `json:"queue_len"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
}

// New builds the ops router.
func New(q *queue.Queue, r *runner.Runner) http.Handler {
	mux := chi.NewRouter()
	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusBody{
			QueueLen:  q.Len(),
			Processed: r.Processed(),
			Failed:    r.Failed(),
		})
	})
	return mux
}
