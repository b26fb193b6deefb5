package media

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Classify maps a Telegram message onto the closed attachment variant.
// Everything downstream of this function is platform-independent.
func Classify(m *tgbotapi.Message) Attachment {
	if len(m.Photo) > 0 {
		// Telegram sends several sizes; the last one is the largest.
		ph := m.Photo[len(m.Photo)-1]
		return Attachment{
			Kind:   Image,
			FileID: ph.FileID,
			Size:   int64(ph.FileSize),
		}
	}
	if m.Video != nil {
		return Attachment{
			Kind:     Video,
			FileID:   m.Video.FileID,
			FileName: m.Video.FileName,
			MIME:     m.Video.MimeType,
			Size:     int64(m.Video.FileSize),
			Duration: time.Duration(m.Video.Duration) * time.Second,
		}
	}
	if d := m.Document; d != nil {
		mime := strings.ToLower(d.MimeType)
		att := Attachment{
			FileID:   d.FileID,
			FileName: d.FileName,
			MIME:     d.MimeType,
			Size:     int64(d.FileSize),
		}
		switch {
		case strings.HasPrefix(mime, "image/"):
			att.Kind = ImageDocument
		case strings.HasPrefix(mime, "video/"):
			att.Kind = VideoDocument
		}
		return att
	}
	return Attachment{}
}
