// Package convo drives the submission wizard: collect two media inputs,
// then create and enqueue a job. The state machine is explicit and
// independent of any chat platform SDK.
package convo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/you/tg-faceswap/internal/media"
	"github.com/you/tg-faceswap/internal/queue"
	"github.com/you/tg-faceswap/internal/session"
	"github.com/you/tg-faceswap/internal/store"
)

// Downloader fetches a platform attachment to a local path.
type Downloader interface {
	Download(ctx context.Context, fileID, destPath string) error
}

// Messenger sends a plain text reply to a chat.
type Messenger interface {
	SendText(chatID int64, text string) error
}

// Config tunes the wizard.
type Config struct {
	UserDir   string // per-user working directories are created under here
	Quota     int    // max submissions per user
	ResultExt string // extension of the result artifact (".jpg" for face swap)

	Prompts Prompts
}

// Prompts are the user-facing wizard texts. Zero values fall back to the
// face-swap wording.
type Prompts struct {
	First    string
	Second   string
	RePrompt string
}

func (p Prompts) first() string {
	if p.First != "" {
		return p.First
	}
	return "Please send the 1st photo with face (this face will be in the result image):"
}

func (p Prompts) second() string {
	if p.Second != "" {
		return p.Second
	}
	return "Got it! Now, please send the 2nd photo with face (this face will be replaced in the final photo):"
}

func (p Prompts) rePrompt() string {
	if p.RePrompt != "" {
		return p.RePrompt
	}
	return "Please send a photo or an uncompressed image file."
}

// Turn is one inbound attachment together with its addressing.
type Turn struct {
	UserID int64
	ChatID int64
	Att    media.Attachment
}

// Controller is the conversation state machine. All collaborators are
// injected so tests can substitute doubles.
type Controller struct {
	store    store.Store
	sessions session.Store
	queue    *queue.Queue
	policy   media.Policy
	prober   media.DurationProber
	dl       Downloader
	msg      Messenger
	cfg      Config

	// transition table: wizard state -> attachment handler
	handlers map[session.State]func(ctx context.Context, t Turn, sess session.Session) error
}

func New(s store.Store, sessions session.Store, q *queue.Queue, policy media.Policy,
	prober media.DurationProber, dl Downloader, msg Messenger, cfg Config) *Controller {
	if cfg.Quota <= 0 {
		cfg.Quota = 5
	}
	if cfg.ResultExt == "" {
		cfg.ResultExt = ".jpg"
	}
	c := &Controller{
		store:    s,
		sessions: sessions,
		queue:    q,
		policy:   policy,
		prober:   prober,
		dl:       dl,
		msg:      msg,
		cfg:      cfg,
	}
	c.handlers = map[session.State]func(context.Context, Turn, session.Session) error{
		session.StateAwaitFirst:  c.handleFirst,
		session.StateAwaitSecond: c.handleSecond,
	}
	return c
}

// Start is the wizard entry point (/start). It registers the user, checks
// the quota and either denies or prompts for the first input.
func (c *Controller) Start(ctx context.Context, userID, chatID int64, handle string) error {
	if err := os.MkdirAll(c.userDir(chatID), 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}
	if err := c.store.RegisterUserIfAbsent(ctx, userID, handle); err != nil {
		return err
	}
	blocked, _, err := c.overQuota(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if blocked {
		return c.sessions.Reset(ctx, userID)
	}
	c.reply(chatID, c.cfg.Prompts.first())
	return c.sessions.Put(ctx, userID, session.Session{State: session.StateAwaitFirst})
}

// HandleAttachment feeds one classified attachment into the wizard. Inputs
// arriving outside an active session are ignored.
func (c *Controller) HandleAttachment(ctx context.Context, t Turn) error {
	sess, err := c.sessions.Get(ctx, t.UserID)
	if err != nil {
		return err
	}
	h, ok := c.handlers[sess.State]
	if !ok {
		return nil
	}
	return h(ctx, t, sess)
}

func (c *Controller) handleFirst(ctx context.Context, t Turn, _ session.Session) error {
	if err := c.policy.CheckSource(t.Att); err != nil {
		if errors.Is(err, media.ErrUnsupported) {
			c.reply(t.ChatID, c.cfg.Prompts.rePrompt())
		} else {
			c.reply(t.ChatID, capitalize(err.Error())+". Please send another one.")
		}
		return nil
	}

	dest := c.artifactPath(t.ChatID, t.Att.Kind)
	if err := c.dl.Download(ctx, t.Att.FileID, dest); err != nil {
		return fmt.Errorf("download first input: %w", err)
	}
	log.Info().Int64("chat_id", t.ChatID).Str("path", dest).Msg("downloaded 1st file")

	c.reply(t.ChatID, c.cfg.Prompts.second())
	return c.sessions.Put(ctx, t.UserID, session.Session{
		State:      session.StateAwaitSecond,
		SourcePath: dest,
	})
}

func (c *Controller) handleSecond(ctx context.Context, t Turn, sess session.Session) error {
	if t.Att.Kind == media.Unrecognized {
		// Unknown input at the second stage terminates the submission.
		c.reply(t.ChatID, "Received unknown file from you. Please provide correct data")
		return c.sessions.Reset(ctx, t.UserID)
	}
	if err := c.policy.CheckTarget(t.Att); err != nil {
		c.reply(t.ChatID, capitalize(err.Error())+". Please send another one.")
		return nil
	}

	dest := c.artifactPath(t.ChatID, t.Att.Kind)
	if err := c.dl.Download(ctx, t.Att.FileID, dest); err != nil {
		return fmt.Errorf("download second input: %w", err)
	}
	log.Info().Int64("chat_id", t.ChatID).Str("path", dest).Msg("downloaded 2nd file")

	if t.Att.Kind.IsVideo() {
		dur, err := c.prober.Duration(ctx, dest)
		if err != nil {
			return fmt.Errorf("probe video duration: %w", err)
		}
		if err := c.policy.CheckDuration(dur); err != nil {
			c.reply(t.ChatID, capitalize(err.Error())+". Please send another one.")
			return nil
		}
	}

	// Re-check the quota: another submission could have landed since Start.
	blocked, usage, err := c.overQuota(ctx, t.UserID, t.ChatID)
	if err != nil {
		return err
	}
	if blocked {
		return c.sessions.Reset(ctx, t.UserID)
	}

	resultPath := filepath.Join(c.userDir(t.ChatID), fmt.Sprintf("result_%d%s", usage+1, c.cfg.ResultExt))
	jobID, err := c.store.CreateJob(ctx, t.UserID, sess.SourcePath, dest, resultPath)
	if err != nil {
		return err
	}
	if err := c.store.IncrementUsage(ctx, t.UserID); err != nil {
		return err
	}
	c.queue.Enqueue(store.Job{
		ID:         jobID,
		UserID:     t.UserID,
		SourcePath: sess.SourcePath,
		TargetPath: dest,
		ResultPath: resultPath,
		Status:     store.StatusPending,
	})
	log.Info().Int64("job_id", jobID).Int64("user_id", t.UserID).Msg("job enqueued")

	c.reply(t.ChatID, "Processing your result...\nThis may take a while")
	return c.sessions.Reset(ctx, t.UserID)
}

// overQuota checks the usage counter and sends the denial message when the
// user is out of submissions.
func (c *Controller) overQuota(ctx context.Context, userID, chatID int64) (bool, int, error) {
	usage, err := c.store.GetUsageCount(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	if usage >= c.cfg.Quota {
		c.reply(chatID, fmt.Sprintf("You have used the bot %d times. Buy a subscription to continue.", c.cfg.Quota))
		return true, usage, nil
	}
	return false, usage, nil
}

func (c *Controller) userDir(chatID int64) string {
	return filepath.Join(c.cfg.UserDir, fmt.Sprintf("%d", chatID))
}

func (c *Controller) artifactPath(chatID int64, k media.Kind) string {
	return filepath.Join(c.userDir(chatID), newULID()+media.Ext(k))
}

// reply delivery failures are logged and swallowed; a flaky network must not
// abort the session.
func (c *Controller) reply(chatID int64, text string) {
	if err := c.msg.SendText(chatID, text); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
}

func newULID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
