package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/you/tg-faceswap/internal/config"
	"github.com/you/tg-faceswap/internal/logx"
	"github.com/you/tg-faceswap/internal/ops"
	"github.com/you/tg-faceswap/internal/queue"
	"github.com/you/tg-faceswap/internal/runner"
	"github.com/you/tg-faceswap/internal/store"
	"github.com/you/tg-faceswap/internal/tg"
)

// The lip-sync wizard: pick a person, pick a language, send the line they
// should say. The transform runs over a stock video of the chosen person.

var (
	people    = []string{"Elon Musk", "Donald Trump", "Vladimir Putin"}
	languages = []string{"English", "Spanish", "Polish"}
)

type wizard struct {
	person   string
	language string
}

type server struct {
	cfg      config.Config
	celebDir string
	bot      *tgbotapi.BotAPI
	client   *tg.Client
	store    *store.Postgres
	queue    *queue.Queue

	mu       sync.Mutex
	sessions map[int64]*wizard
}

// prompt is the job input file consumed by the lip-sync script.
type prompt struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func main() {
	_ = godotenv.Load()
	c := config.Load()

	logx.Setup(logx.FromEnv("lipsyncbot"))
	log.Info().Msg("bot starting")

	if c.BotToken == "" {
		log.Fatal().Msg("BOT_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx := context.Background()

	st, err := store.NewPostgres(ctx, c.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()

	bot, err := tgbotapi.NewBotAPI(c.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("bot auth failed")
	}
	log.Info().Str("username", bot.Self.UserName).Msg("bot authorized")

	client := tg.NewClient(bot, c.BotToken)

	q := queue.New()
	n, err := q.LoadPending(ctx, st)
	if err != nil {
		log.Fatal().Err(err).Msg("pending task recovery failed")
	}
	log.Info().Int("count", n).Msg("pending tasks loaded")

	run := runner.New(st, q, runner.LipSyncCommand{Runtime: c.SwapRuntime, Script: c.SwapScript}, client)
	go func() {
		if err := run.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("runner stopped")
		}
	}()

	go func() {
		log.Info().Str("addr", c.OpsAddr).Msg("ops endpoint listening")
		if err := http.ListenAndServe(c.OpsAddr, ops.New(q, run)); err != nil {
			log.Error().Err(err).Msg("ops endpoint stopped")
		}
	}()

	s := &server{
		cfg:      c,
		celebDir: config.Getenv("CELEB_DIR", "/data/celebs"),
		bot:      bot,
		client:   client,
		store:    st,
		queue:    q,
		sessions: make(map[int64]*wizard),
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	for upd := range bot.GetUpdatesChan(u) {
		switch {
		case upd.Message != nil:
			s.onMessage(ctx, upd.Message)
		case upd.CallbackQuery != nil:
			s.onCallback(upd.CallbackQuery)
		}
	}
}

func (s *server) onMessage(ctx context.Context, m *tgbotapi.Message) {
	userID := m.From.ID
	chatID := m.Chat.ID

	if m.IsCommand() {
		if m.Command() != "start" {
			_, _ = s.bot.Send(tgbotapi.NewMessage(chatID, "Unknown command. /start to begin."))
			return
		}
		if err := s.start(ctx, m); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("start failed")
		}
		return
	}

	if m.Text == "" {
		return
	}
	s.mu.Lock()
	w, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok || w.person == "" || w.language == "" {
		return
	}
	if err := s.submit(ctx, userID, chatID, w, m.Text); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("submission failed")
	}
}

func (s *server) start(ctx context.Context, m *tgbotapi.Message) error {
	userID := m.From.ID
	chatID := m.Chat.ID

	if err := os.MkdirAll(s.userDir(chatID), 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}
	if err := s.store.RegisterUserIfAbsent(ctx, userID, m.From.UserName); err != nil {
		return err
	}
	blocked, _, err := s.overQuota(ctx, userID, chatID)
	if err != nil || blocked {
		return err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range people {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p, "celeb "+p)))
	}
	msg := tgbotapi.NewMessage(chatID, "Please choose:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = s.bot.Send(msg)

	s.mu.Lock()
	s.sessions[userID] = &wizard{}
	s.mu.Unlock()
	return nil
}

func (s *server) onCallback(cq *tgbotapi.CallbackQuery) {
	data := cq.Data
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID

	s.mu.Lock()
	w, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		_ = s.answerCB(cq, "No active session. /start to begin.")
		return
	}

	switch {
	case strings.HasPrefix(data, "celeb "):
		w.person = strings.TrimPrefix(data, "celeb ")
		_ = s.answerCB(cq, "Selected: "+w.person)

		var rows [][]tgbotapi.InlineKeyboardButton
		for _, l := range languages {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(l, "lang "+l)))
		}
		msg := tgbotapi.NewMessage(chatID, "Please choose a language:")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		_, _ = s.bot.Send(msg)

	case strings.HasPrefix(data, "lang "):
		w.language = strings.TrimPrefix(data, "lang ")
		_ = s.answerCB(cq, "Selected language: "+w.language)
		_, _ = s.bot.Send(tgbotapi.NewMessage(chatID, "Please provide input text:"))

	default:
		_ = s.answerCB(cq, "")
	}
}

func (s *server) submit(ctx context.Context, userID, chatID int64, w *wizard, text string) error {
	blocked, usage, err := s.overQuota(ctx, userID, chatID)
	if err != nil || blocked {
		return err
	}

	srcVideo := filepath.Join(s.celebDir, slug(w.person)+".mp4")
	promptPath := filepath.Join(s.userDir(chatID), fmt.Sprintf("prompt_%d.json", usage+1))
	b, _ := json.Marshal(prompt{Text: text, Language: w.language})
	if err := os.WriteFile(promptPath, b, 0o644); err != nil {
		return fmt.Errorf("write prompt file: %w", err)
	}

	resultPath := filepath.Join(s.userDir(chatID), fmt.Sprintf("result_%d.mp4", usage+1))
	jobID, err := s.store.CreateJob(ctx, userID, srcVideo, promptPath, resultPath)
	if err != nil {
		return err
	}
	if err := s.store.IncrementUsage(ctx, userID); err != nil {
		return err
	}
	s.queue.Enqueue(store.Job{
		ID:         jobID,
		UserID:     userID,
		SourcePath: srcVideo,
		TargetPath: promptPath,
		ResultPath: resultPath,
		Status:     store.StatusPending,
	})
	log.Info().Int64("job_id", jobID).Int64("user_id", userID).Msg("job enqueued")

	_, _ = s.bot.Send(tgbotapi.NewMessage(chatID, "Processing your result...\nThis may take a while"))

	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	return nil
}

func (s *server) overQuota(ctx context.Context, userID, chatID int64) (bool, int, error) {
	usage, err := s.store.GetUsageCount(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	if usage >= s.cfg.UsageQuota {
		_, _ = s.bot.Send(tgbotapi.NewMessage(chatID,
			fmt.Sprintf("You have used the bot %d times. Buy a subscription to continue.", s.cfg.UsageQuota)))
		return true, usage, nil
	}
	return false, usage, nil
}

func (s *server) userDir(chatID int64) string {
	return filepath.Join(s.cfg.UserDir, fmt.Sprintf("%d", chatID))
}

func (s *server) answerCB(cq *tgbotapi.CallbackQuery, text string) error {
	_, err := s.bot.Request(tgbotapi.NewCallback(cq.ID, text))
	return err
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
