package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	logx "notifyrelay/pkg/logx"
)

// ErrSourceClosed is returned by Next after Close.
var ErrSourceClosed = errors.New("line source closed")

// Kinds accepted by Open.
const (
	KindExec   = "exec"
	KindDBus   = "dbus"
	KindReader = "reader"
)

// DefaultCommand is the bus monitor spawned by the exec source.
var DefaultCommand = []string{"dbus-monitor", "interface='org.freedesktop.Notifications'"}

// DefaultMatchRule selects Notify calls for the native bus source.
const DefaultMatchRule = "type='method_call',interface='org.freedesktop.Notifications',member='Notify'"

// maxLineBytes caps a delivered line; the rest of a longer line is dropped.
const maxLineBytes = 1 << 20

// LineSource yields text lines one at a time.
//
// Next blocks until a line is available, the source ends (io.EOF), or ctx
// is done. Close releases the underlying resource (killing a child process
// if there is one); it is idempotent and safe to call from any goroutine.
type LineSource interface {
	Next(ctx context.Context) (string, error)
	Close() error
	Name() string
}

type Config struct {
	Kind    string
	Command []string
	Rules   []string
	// Input is read by the reader source.
	Input io.Reader
}

// Open starts the configured source.
func Open(ctx context.Context, cfg Config, log logx.Logger) (LineSource, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindExec:
		argv := cfg.Command
		if len(argv) == 0 {
			argv = DefaultCommand
		}
		return StartCommand(argv, log)
	case KindDBus:
		rules := cfg.Rules
		if len(rules) == 0 {
			rules = []string{DefaultMatchRule}
		}
		return StartBus(ctx, rules, log)
	case KindReader:
		if cfg.Input == nil {
			return nil, errors.New("reader source requires an input")
		}
		return newReader("reader", cfg.Input, log), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// lineStream pumps lines from r on its own goroutine so Next can give up
// on ctx while the read itself stays blocked.
type lineStream struct {
	lines chan string
	err   error // valid once lines is closed
	stop  chan struct{}
	once  sync.Once
}

func pump(r io.Reader, log logx.Logger) *lineStream {
	s := &lineStream{lines: make(chan string), stop: make(chan struct{})}
	go func() {
		defer close(s.lines)
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			line, dropped, err := readLine(br, maxLineBytes)
			if err != nil && !errors.Is(err, io.EOF) {
				s.err = err
				return
			}
			if err != nil && len(line) == 0 && dropped == 0 {
				return
			}
			if dropped > 0 {
				log.Warn("line truncated", logx.Int("kept", len(line)), logx.Int("dropped", dropped))
			}
			select {
			case s.lines <- string(line):
			case <-s.stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return s
}

// readLine reads up to the next newline and returns at most limit bytes of
// it without the line ending. dropped counts the bytes discarded past limit.
func readLine(br *bufio.Reader, limit int) (line []byte, dropped int, err error) {
	for {
		frag, ferr := br.ReadSlice('\n')
		if !errors.Is(ferr, bufio.ErrBufferFull) {
			frag = bytes.TrimSuffix(bytes.TrimSuffix(frag, []byte{'\n'}), []byte{'\r'})
		}
		n := min(len(frag), limit-len(line))
		line = append(line, frag[:n]...)
		dropped += len(frag) - n
		if errors.Is(ferr, bufio.ErrBufferFull) {
			continue
		}
		return line, dropped, ferr
	}
}

func (s *lineStream) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.stop:
		return "", ErrSourceClosed
	case line, ok := <-s.lines:
		if ok {
			return line, nil
		}
		select {
		case <-s.stop:
			return "", ErrSourceClosed
		default:
		}
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
}

func (s *lineStream) close() {
	s.once.Do(func() { close(s.stop) })
}

// Reader is a LineSource over an io.Reader (stdin, a captured transcript).
type Reader struct {
	name   string
	r      io.Reader
	stream *lineStream
}

func NewReader(name string, r io.Reader) *Reader {
	return newReader(name, r, logx.Nop())
}

func newReader(name string, r io.Reader, log logx.Logger) *Reader {
	return &Reader{name: name, r: r, stream: pump(r, log)}
}

func (r *Reader) Name() string { return r.name }

func (r *Reader) Next(ctx context.Context) (string, error) { return r.stream.next(ctx) }

// Close stops delivery and closes the reader when it is an io.Closer.
func (r *Reader) Close() error {
	r.stream.close()
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
