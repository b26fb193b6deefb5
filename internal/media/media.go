// Package media classifies inbound attachments and enforces intake policy.
package media

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the closed set of attachment classes the pipeline understands.
type Kind int

const (
	Unrecognized Kind = iota
	Image             // compressed photo
	ImageDocument     // uncompressed image sent as a file
	Video
	VideoDocument // video sent as a file
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case ImageDocument:
		return "image-document"
	case Video:
		return "video"
	case VideoDocument:
		return "video-document"
	default:
		return "unrecognized"
	}
}

// IsVideo reports whether the attachment needs the video ceilings applied.
func (k Kind) IsVideo() bool { return k == Video || k == VideoDocument }

// Ext is the canonical extension artifacts of this kind are stored under.
func Ext(k Kind) string {
	if k.IsVideo() {
		return ".mp4"
	}
	return ".jpg"
}

// Attachment is a platform-independent attachment descriptor.
type Attachment struct {
	Kind     Kind
	FileID   string
	FileName string
	MIME     string
	Size     int64
	Duration time.Duration // declared duration; authoritative value comes from probing
}

var ErrUnsupported = errors.New("unsupported attachment type")

// TooLargeError rejects an attachment over a byte ceiling.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file is too big, the limit is %d MB", e.Limit/(1024*1024))
}

// TooLongError rejects a video over the duration ceiling. Its message is
// distinct from the size message on purpose.
type TooLongError struct {
	Limit time.Duration
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("video is too long, the limit is %d seconds", int(e.Limit.Seconds()))
}

// Policy holds the intake ceilings.
type Policy struct {
	ImageDocMaxBytes int64
	VideoMaxBytes    int64
	VideoMaxDuration time.Duration
}

// CheckSource applies the first-input policy: images only, with the
// image-document size ceiling.
func (p Policy) CheckSource(att Attachment) error {
	switch att.Kind {
	case Image:
		return nil
	case ImageDocument:
		if p.ImageDocMaxBytes > 0 && att.Size > p.ImageDocMaxBytes {
			return &TooLargeError{Limit: p.ImageDocMaxBytes}
		}
		return nil
	default:
		return ErrUnsupported
	}
}

// CheckTarget applies the second-input type and size policy. Duration is
// checked separately, after the artifact has been downloaded and probed.
func (p Policy) CheckTarget(att Attachment) error {
	switch att.Kind {
	case Image:
		return nil
	case ImageDocument:
		if p.ImageDocMaxBytes > 0 && att.Size > p.ImageDocMaxBytes {
			return &TooLargeError{Limit: p.ImageDocMaxBytes}
		}
		return nil
	case Video, VideoDocument:
		if p.VideoMaxBytes > 0 && att.Size > p.VideoMaxBytes {
			return &TooLargeError{Limit: p.VideoMaxBytes}
		}
		return nil
	default:
		return ErrUnsupported
	}
}

// CheckDuration applies the video duration ceiling to a probed duration.
func (p Policy) CheckDuration(d time.Duration) error {
	if p.VideoMaxDuration > 0 && d > p.VideoMaxDuration {
		return &TooLongError{Limit: p.VideoMaxDuration}
	}
	return nil
}
