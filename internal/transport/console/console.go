// Package console is a kit.Sender that prints messages instead of
// delivering them. The replay command uses it for dry runs.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	kit "notifyrelay/internal/transport"
)

type Sender struct {
	mu  sync.Mutex
	w   io.Writer
	seq int
}

func New(w io.Writer) *Sender { return &Sender{w: w} }

func (s *Sender) SendText(ctx context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if _, err := fmt.Fprintf(s.w, "--- message %d (chat %d) ---\n%s\n\n", s.seq, to.ChatID, text); err != nil {
		return kit.MessageRef{}, err
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: s.seq}, nil
}

// Count reports how many messages were printed.
func (s *Sender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
