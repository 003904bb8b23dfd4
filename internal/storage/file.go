package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "notifyrelay/pkg/logx"
)

// fileStore appends entries to a JSON Lines file. Reads and prunes scan the
// whole file, which is fine for a journal of human-scale alert volume.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
	f  *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path, f: f}, nil
}

func (s *fileStore) AppendAlert(ctx context.Context, e AlertEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrDisabled
	}
	_, err = s.f.Write(append(b, '\n'))
	return err
}

func (s *fileStore) readAllLocked() ([]AlertEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []AlertEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e AlertEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			// skip torn writes
			s.log.Debug("journal line skipped", logx.Err(err))
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func (s *fileStore) RecentAlerts(ctx context.Context, limit int) ([]AlertEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	all, err := s.readAllLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]AlertEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// PruneBefore rewrites the journal without the expired entries and swaps it
// in with a rename.
func (s *fileStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, ErrDisabled
	}

	all, err := s.readAllLocked()
	if err != nil {
		return 0, err
	}
	keep := all[:0]
	for _, e := range all {
		if !e.At.Before(cutoff) {
			keep = append(keep, e)
		}
	}
	removed := len(all) - len(keep)
	if removed == 0 {
		return 0, nil
	}

	tmp := s.path + ".tmp"
	tf, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(tf)
	for _, e := range keep {
		b, err := json.Marshal(e)
		if err != nil {
			_ = tf.Close()
			return 0, err
		}
		_, _ = w.Write(append(b, '\n'))
	}
	if err := w.Flush(); err != nil {
		_ = tf.Close()
		return 0, err
	}
	if err := tf.Close(); err != nil {
		return 0, err
	}

	_ = s.f.Close()
	if err := os.Rename(tmp, s.path); err != nil {
		return 0, err
	}
	s.f, err = os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return removed, err
	}
	return removed, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
