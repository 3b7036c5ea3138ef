package telegram

import (
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"
)

// fakeAPI is a minimal Bot API server. Queued updates are delivered on the
// next getUpdates call; empty polls return after a short pause.
type fakeAPI struct {
	mu       sync.Mutex
	updates  []string
	calls    map[string]int
	failSend bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{calls: make(map[string]int)}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func (f *fakeAPI) queue(update string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	f.calls[method]++
	failSend := f.failSend
	pending := f.updates
	if method == "getUpdates" {
		f.updates = nil
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Gate","username":"gate_bot"}}`))
	case "sendMessage":
		if failSend {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":42,"type":"private"},"text":"x"}}`))
	case "editMessageReplyMarkup":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":42,"type":"private"},"text":"x"}}`))
	case "answerCallbackQuery":
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	case "getUpdates":
		if len(pending) == 0 {
			time.Sleep(20 * time.Millisecond)
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
			return
		}
		body := `{"ok":true,"result":[`
		for i, u := range pending {
			if i > 0 {
				body += ","
			}
			body += u
		}
		body += `]}`
		_, _ = w.Write([]byte(body))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}
