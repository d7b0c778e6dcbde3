// Package bot turns Telegram updates into extraction requests. It answers
// the welcome commands, rejects non-video files and runs each accepted video
// through the pipeline off the polling loop.
package bot

import (
	"strconv"
	"strings"

	"github.com/maauso/audiograb/internal/job"
	"github.com/maauso/audiograb/internal/telegram"
)

// Replies sent directly by the dispatcher.
const (
	WelcomeText = "Welcome!\n" +
		"Send me a video, and I'll extract the audio for you.\n" +
		"If the video exceeds 20MB, I'll split it into smaller parts, extract audio from each, and merge them seamlessly!"
	InvalidVideoText = "Please send a valid video file."
	TooLargeText     = "This video is too large for me to download."
)

// Kind classifies an incoming message.
type Kind int

const (
	KindIgnored Kind = iota
	KindWelcome
	KindVideo
	KindInvalidFile
)

// IncomingVideo is a video message accepted for extraction.
type IncomingVideo struct {
	ChatID   int64  `validate:"required"`
	FileID   string `validate:"required"`
	FileName string `validate:"required,max=255"`
	FileSize int64  `validate:"gte=0"`
	MimeType string `validate:"omitempty,startswith=video/"`
}

// Request converts the message into a pipeline request.
func (v IncomingVideo) Request() job.Request {
	return job.Request{
		Target:       strconv.FormatInt(v.ChatID, 10),
		FileRef:      v.FileID,
		FileName:     v.FileName,
		DeclaredSize: v.FileSize,
	}
}

// Classify inspects msg. For KindVideo the returned IncomingVideo is filled;
// it still needs validation.
func Classify(msg *telegram.Message) (Kind, IncomingVideo) {
	if msg == nil {
		return KindIgnored, IncomingVideo{}
	}

	switch {
	case isCommand(msg.Text, "start"), isCommand(msg.Text, "help"):
		return KindWelcome, IncomingVideo{}

	case msg.Video != nil:
		v := msg.Video
		name := v.FileName
		if name == "" {
			name = v.FileID + ".mp4"
		}
		return KindVideo, IncomingVideo{
			ChatID:   msg.Chat.ID,
			FileID:   v.FileID,
			FileName: name,
			FileSize: v.FileSize,
			MimeType: v.MimeType,
		}

	case msg.Document != nil:
		d := msg.Document
		if !strings.HasPrefix(d.MimeType, "video/") {
			return KindInvalidFile, IncomingVideo{}
		}
		name := d.FileName
		if name == "" {
			name = d.FileID + ".mp4"
		}
		return KindVideo, IncomingVideo{
			ChatID:   msg.Chat.ID,
			FileID:   d.FileID,
			FileName: name,
			FileSize: d.FileSize,
			MimeType: d.MimeType,
		}
	}

	return KindIgnored, IncomingVideo{}
}

// isCommand matches "/name" and "/name@botname", optionally followed by arguments.
func isCommand(text, name string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return cmd == "/"+name
}
