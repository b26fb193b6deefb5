package media

import (
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func testPolicy() Policy {
	return Policy{
		ImageDocMaxBytes: 5 * 1024 * 1024,
		VideoMaxBytes:    200 * 1024 * 1024,
		VideoMaxDuration: 15 * time.Second,
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		msg  *tgbotapi.Message
		want Kind
	}{
		{
			name: "photo",
			msg:  &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}}},
			want: Image,
		},
		{
			name: "video",
			msg:  &tgbotapi.Message{Video: &tgbotapi.Video{FileID: "v", Duration: 10}},
			want: Video,
		},
		{
			name: "image document",
			msg:  &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d", MimeType: "image/png"}},
			want: ImageDocument,
		},
		{
			name: "video document",
			msg:  &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d", MimeType: "video/mp4"}},
			want: VideoDocument,
		},
		{
			name: "other document",
			msg:  &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d", MimeType: "application/pdf"}},
			want: Unrecognized,
		},
		{
			name: "plain text",
			msg:  &tgbotapi.Message{Text: "hello"},
			want: Unrecognized,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.msg)
			if got.Kind != tc.want {
				t.Fatalf("kind = %v, want %v", got.Kind, tc.want)
			}
		})
	}
}

func TestClassifyPicksLargestPhoto(t *testing.T) {
	msg := &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}}}
	if got := Classify(msg); got.FileID != "big" {
		t.Fatalf("file id = %q, want largest size", got.FileID)
	}
}

func TestCheckSource(t *testing.T) {
	p := testPolicy()

	if err := p.CheckSource(Attachment{Kind: Image}); err != nil {
		t.Fatalf("photo should pass: %v", err)
	}
	if err := p.CheckSource(Attachment{Kind: ImageDocument, Size: 1024}); err != nil {
		t.Fatalf("small image doc should pass: %v", err)
	}

	err := p.CheckSource(Attachment{Kind: ImageDocument, Size: 6 * 1024 * 1024})
	var tooLarge *TooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("oversized image doc: got %v, want TooLargeError", err)
	}

	if err := p.CheckSource(Attachment{Kind: Video}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("video as first input: got %v, want ErrUnsupported", err)
	}
	if err := p.CheckSource(Attachment{Kind: Unrecognized}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unrecognized first input: got %v, want ErrUnsupported", err)
	}
}

func TestCheckTarget(t *testing.T) {
	p := testPolicy()

	for _, k := range []Kind{Image, ImageDocument, Video, VideoDocument} {
		if err := p.CheckTarget(Attachment{Kind: k, Size: 1024}); err != nil {
			t.Fatalf("%v target should pass: %v", k, err)
		}
	}

	err := p.CheckTarget(Attachment{Kind: Video, Size: 201 * 1024 * 1024})
	var tooLarge *TooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("oversized video: got %v, want TooLargeError", err)
	}
	if err := p.CheckTarget(Attachment{Kind: Unrecognized}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("unrecognized target: got %v, want ErrUnsupported", err)
	}
}

// The duration rejection must carry the duration message, not the size one.
func TestCheckDurationMessage(t *testing.T) {
	p := testPolicy()

	if err := p.CheckDuration(10 * time.Second); err != nil {
		t.Fatalf("10s video should pass: %v", err)
	}
	err := p.CheckDuration(16 * time.Second)
	var tooLong *TooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("overlong video: got %v, want TooLongError", err)
	}
	if !strings.Contains(err.Error(), "seconds") || strings.Contains(err.Error(), "MB") {
		t.Fatalf("duration message leaked into size wording: %q", err.Error())
	}
}

func TestExt(t *testing.T) {
	if got := Ext(Image); got != ".jpg" {
		t.Fatalf("image ext = %q", got)
	}
	if got := Ext(VideoDocument); got != ".mp4" {
		t.Fatalf("video doc ext = %q", got)
	}
}
