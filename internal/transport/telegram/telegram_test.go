package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "notifyrelay/internal/transport"
	logx "notifyrelay/pkg/logx"
)

type fakeAPI struct {
	mu    sync.Mutex
	paths []string
	texts []string
	fail  bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	if s, ok := body["text"].(string); ok {
		f.texts = append(f.texts, s)
	}
	fail := f.fail
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":1700000000,"chat":{"id":100,"type":"private"},"text":"ok"}}`))
}

func newTestAdapter(t *testing.T, api *fakeAPI) *Adapter {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	a, err := New(Config{Token: "123:abc", APIURL: srv.URL}, logx.Nop())
	require.NoError(t, err)
	return a
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{Token: "  "}, logx.Nop())
	assert.Error(t, err)
}

func TestSendText(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAdapter(t, api)

	ref, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: 100}, "School Email Alert\n\nFrom: a\nSubject: b", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, ref.MessageID)
	assert.Equal(t, int64(100), ref.ChatID)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"/bot123:abc/sendMessage"}, api.paths)
	assert.Equal(t, []string{"School Email Alert\n\nFrom: a\nSubject: b"}, api.texts)
}

func TestSendTextReportsAPIError(t *testing.T) {
	api := &fakeAPI{fail: true}
	a := newTestAdapter(t, api)

	_, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: 100}, "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendTextNeedsChat(t *testing.T) {
	a := newTestAdapter(t, &fakeAPI{})
	_, err := a.SendText(context.Background(), kit.ChatTarget{}, "x", nil)
	assert.ErrorIs(t, err, ErrNoChat)
}

func TestSendTextCanceled(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAdapter(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.SendText(ctx, kit.ChatTarget{ChatID: 100}, "x", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.paths)
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitText("short", 10))

	long := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	assert.Equal(t, []string{"aaaaaa", "bbbbbb"}, splitText(long, 10))

	assert.Equal(t, []string{"abcd", "efgh", "ij"}, splitText("abcdefghij", 4))
}
