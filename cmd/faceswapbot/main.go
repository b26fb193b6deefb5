package main

import (
	"context"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/you/tg-faceswap/internal/config"
	"github.com/you/tg-faceswap/internal/convo"
	"github.com/you/tg-faceswap/internal/logx"
	"github.com/you/tg-faceswap/internal/media"
	"github.com/you/tg-faceswap/internal/ops"
	"github.com/you/tg-faceswap/internal/queue"
	"github.com/you/tg-faceswap/internal/runner"
	"github.com/you/tg-faceswap/internal/session"
	"github.com/you/tg-faceswap/internal/store"
	"github.com/you/tg-faceswap/internal/tg"
)

type server struct {
	cfg  config.Config
	bot  *tgbotapi.BotAPI
	ctrl *convo.Controller
}

func main() {
	_ = godotenv.Load()
	c := config.Load()

	logx.Setup(logx.FromEnv("faceswapbot"))
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

	var sessions session.Store
	if c.RedisAddr != "" {
		sessions = session.NewRedis(redis.NewClient(&redis.Options{Addr: c.RedisAddr}))
	} else {
		sessions = session.NewMem()
	}

	bot, err := tgbotapi.NewBotAPI(c.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("bot auth failed")
	}
	bot.Debug = false
	log.Info().Str("username", bot.Self.UserName).Msg("bot authorized")

	client := tg.NewClient(bot, c.BotToken)

	// Recover jobs that were queued but never started before the last
	// shutdown, oldest first, before the runner begins consuming.
	q := queue.New()
	n, err := q.LoadPending(ctx, st)
	if err != nil {
		log.Fatal().Err(err).Msg("pending task recovery failed")
	}
	log.Info().Int("count", n).Msg("pending tasks loaded")

	run := runner.New(st, q, runner.SwapCommand{Runtime: c.SwapRuntime, Script: c.SwapScript}, client)
	run.DomainFailure.Marker = runner.NoFaceDiagnostic
	run.DomainFailure.Message = runner.NoFaceMessage
	go func() {
		if err := run.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("runner stopped")
		}
	}()

	// health/status endpoint
	go func() {
		log.Info().Str("addr", c.OpsAddr).Msg("ops endpoint listening")
		if err := http.ListenAndServe(c.OpsAddr, ops.New(q, run)); err != nil {
			log.Error().Err(err).Msg("ops endpoint stopped")
		}
	}()

	ctrl := convo.New(st, sessions, q,
		media.Policy{
			ImageDocMaxBytes: c.ImageDocMaxBytes,
			VideoMaxBytes:    c.VideoMaxBytes,
			VideoMaxDuration: c.VideoMaxDuration,
		},
		media.FFProbe{Bin: c.FFProbeBin},
		client, client,
		convo.Config{UserDir: c.UserDir, Quota: c.UsageQuota, ResultExt: ".jpg"},
	)

	s := &server{cfg: c, bot: bot, ctrl: ctrl}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	for upd := range bot.GetUpdatesChan(u) {
		if upd.Message == nil {
			continue
		}
		s.onMessage(ctx, upd.Message)
	}
}

func (s *server) onMessage(ctx context.Context, m *tgbotapi.Message) {
	log.Info().
		Int64("chat_id", m.Chat.ID).
		Int64("user_id", m.From.ID).
		Msg("message received")

	if m.IsCommand() {
		switch m.Command() {
		case "start":
			if err := s.ctrl.Start(ctx, m.From.ID, m.Chat.ID, m.From.UserName); err != nil {
				log.Error().Err(err).Msg("start failed")
			}
		default:
			_, _ = s.bot.Send(tgbotapi.NewMessage(m.Chat.ID, "Unknown command. /start to begin."))
		}
		return
	}

	att := media.Classify(m)
	err := s.ctrl.HandleAttachment(ctx, convo.Turn{
		UserID: m.From.ID,
		ChatID: m.Chat.ID,
		Att:    att,
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", m.From.ID).Msg("attachment handling failed")
	}
}
