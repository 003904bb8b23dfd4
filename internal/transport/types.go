package transport

import "context"

// ChatTarget addresses a chat and, for forum groups, a topic thread (0 if none).
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

func (t ChatTarget) IsZero() bool { return t.ChatID == 0 }

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers plain text to a chat. It is the only outbound surface the
// relay needs from a messaging platform.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// Publisher is an optional secondary sink that receives every emitted alert
// as an already-encoded payload.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close() error
}
