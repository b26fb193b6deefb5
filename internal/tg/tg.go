// Package tg adapts the Telegram bot API to the pipeline's small I/O
// boundary: download an attachment, send text or a file.
package tg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client wraps the bot API for downloads and outbound messages.
type Client struct {
	bot   *tgbotapi.BotAPI
	token string
}

func NewClient(bot *tgbotapi.BotAPI, token string) *Client {
	return &Client{bot: bot, token: token}
}

func (c *Client) SendText(chatID int64, text string) error {
	_, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendFile delivers a result artifact: images go out as photos, everything
// else as a document.
func (c *Client) SendFile(chatID int64, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	var err error
	if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
		_, err = c.bot.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path)))
	} else {
		_, err = c.bot.Send(tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path)))
	}
	return err
}

// Download resolves a file id and streams it to destPath.
func (c *Client) Download(ctx context.Context, fileID, destPath string) error {
	f, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Link(c.token), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch file %s: status %d", fileID, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}
