package parser

import (
	"strings"
	"time"
)

// DefaultMarker identifies the method-call header of a Notify invocation.
const DefaultMarker = "member=Notify"

// Fixed positions within an event block.
const (
	offsetApp     = 1
	offsetSender  = 4
	offsetSubject = 5
)

// Record is one notification rebuilt from an event block. Fields absent from
// the block are empty strings.
type Record struct {
	App        string    `json:"app"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	ObservedAt time.Time `json:"observed_at"`
}

// session is the capture state of the block being read.
type session struct {
	offset  int
	app     string
	sender  string
	subject string
}

// Parser is a line-driven state machine: IDLE until a marker line, then
// CAPTURING(offset) until offset 5 or the next marker. Not safe for
// concurrent use; one goroutine feeds it.
type Parser struct {
	marker string
	now    func() time.Time

	cur *session // nil while IDLE
}

type Option func(*Parser)

// WithMarker overrides the boundary marker substring.
func WithMarker(marker string) Option {
	return func(p *Parser) {
		if strings.TrimSpace(marker) != "" {
			p.marker = marker
		}
	}
}

// WithClock sets the time source used for Record.ObservedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{marker: DefaultMarker, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Capturing reports whether an event block is open.
func (p *Parser) Capturing() bool { return p.cur != nil }

// Offset returns the position of the last line consumed in the open block,
// or -1 while idle.
func (p *Parser) Offset() int {
	if p.cur == nil {
		return -1
	}
	return p.cur.offset
}

// Feed consumes one line. It returns a record (and true) when the line
// completes a block.
func (p *Parser) Feed(line string) (Record, bool) {
	line = strings.TrimSpace(line)

	if strings.Contains(line, p.marker) {
		// A marker always starts over, dropping any partial block.
		p.cur = &session{}
		return Record{}, false
	}
	if p.cur == nil {
		return Record{}, false
	}

	s := p.cur
	s.offset++
	switch s.offset {
	case offsetApp:
		s.app = quoted(line)
	case offsetSender:
		s.sender = quoted(line)
	case offsetSubject:
		s.subject = quotedOuter(line)
		p.cur = nil
		return Record{
			App:        s.app,
			Sender:     s.sender,
			Subject:    s.subject,
			ObservedAt: p.now(),
		}, true
	}
	return Record{}, false
}

// Reset returns the parser to IDLE.
func (p *Parser) Reset() { p.cur = nil }
