package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	logx "notifyrelay/pkg/logx"
)

// stderrGrace bounds how long reaping waits for stderr when a descendant
// still holds the pipe open.
const stderrGrace = 2 * time.Second

// Command runs a bus monitor process and yields its stdout lines.
type Command struct {
	argv   []string
	cmd    *exec.Cmd
	stream *lineStream
	log    logx.Logger
	// stderrDone is closed once stderr hit EOF; Wait must not run before.
	stderrDone chan struct{}

	waitOnce sync.Once
	waitErr  error

	closeOnce sync.Once
}

// StartCommand spawns argv. The process lives until Close or until it exits
// on its own.
func StartCommand(argv []string, log logx.Logger) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("exec source: empty command")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("exec source: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("exec source: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("exec source: start %s: %w", argv[0], err)
	}

	c := &Command{argv: append([]string(nil), argv...), cmd: cmd, stream: pump(stdout, log), log: log, stderrDone: make(chan struct{})}
	go c.drainStderr(stderr)
	log.Debug("monitor process started", logx.String("cmd", strings.Join(argv, " ")), logx.Int("pid", cmd.Process.Pid))
	return c, nil
}

func (c *Command) Name() string { return "exec:" + c.argv[0] }

// Next returns the next stdout line. When stdout ends it reaps the process:
// a clean exit yields io.EOF, a failed one an error carrying the status.
func (c *Command) Next(ctx context.Context) (string, error) {
	line, err := c.stream.next(ctx)
	if !errors.Is(err, io.EOF) {
		return line, err
	}
	if werr := c.wait(); werr != nil {
		return "", fmt.Errorf("%s exited: %w", c.argv[0], werr)
	}
	return "", io.EOF
}

// Close kills the monitor process (if still running) and reaps it.
func (c *Command) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.stream.close()
		if c.cmd.Process != nil {
			if kerr := c.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				err = kerr
			}
		}
		_ = c.wait()
		c.log.Debug("monitor process released", logx.String("cmd", c.argv[0]))
	})
	return err
}

func (c *Command) wait() error {
	c.waitOnce.Do(func() {
		select {
		case <-c.stderrDone:
		case <-time.After(stderrGrace):
		}
		c.waitErr = c.cmd.Wait()
	})
	return c.waitErr
}

func (c *Command) drainStderr(r io.Reader) {
	defer close(c.stderrDone)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			c.log.Warn("monitor stderr", logx.String("line", line))
		}
	}
}
