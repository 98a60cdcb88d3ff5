package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// echoAnswerServer answers every query frame with a canned JSON answer and
// counts handshakes.
func echoAnswerServer(t *testing.T, handshakes *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if handshakes != nil {
			atomic.AddInt32(handshakes, 1)
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			query := gjson.GetBytes(msg, "query").String()
			reply := `{"success":true,"answer":"you asked: ` + query + `"}`
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSConversationalistExchange(t *testing.T) {
	srv := echoAnswerServer(t, nil)
	defer srv.Close()

	conv, err := NewWSConversationalist(WSOptions{Target: wsURL(srv)})
	if err != nil {
		t.Fatalf("new conversationalist: %v", err)
	}
	defer conv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ans, err := conv.Ask(ctx, "hello")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !ans.Success || ans.Text != "you asked: hello" {
		t.Fatalf("unexpected answer: %+v", ans)
	}
}

func TestWSConversationalistReusesConnection(t *testing.T) {
	var handshakes int32
	srv := echoAnswerServer(t, &handshakes)
	defer srv.Close()

	conv, err := NewWSConversationalist(WSOptions{Target: wsURL(srv)})
	if err != nil {
		t.Fatalf("new conversationalist: %v", err)
	}
	defer conv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		if _, err := conv.Ask(ctx, "again"); err != nil {
			t.Fatalf("ask %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&handshakes); got != 1 {
		t.Fatalf("expected one handshake for sequential asks, got %d", got)
	}
}

func TestWSConversationalistRecoversStaleSession(t *testing.T) {
	var handshakes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := atomic.AddInt32(&handshakes, 1)
		if n == 1 {
			// Serve one exchange, then drop the connection abruptly.
			_, _, _ = conn.ReadMessage()
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"success":true,"answer":"first"}`))
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"success":true,"answer":"second"}`)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	conv, err := NewWSConversationalist(WSOptions{Target: wsURL(srv)})
	if err != nil {
		t.Fatalf("new conversationalist: %v", err)
	}
	defer conv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := conv.Ask(ctx, "one"); err != nil {
		t.Fatalf("first ask failed: %v", err)
	}

	// Give the server a moment to tear the connection down.
	time.Sleep(50 * time.Millisecond)

	ans, err := conv.Ask(ctx, "two")
	if err != nil {
		t.Fatalf("ask on stale session should recover: %v", err)
	}
	if ans.Text != "second" {
		t.Fatalf("unexpected answer after recovery: %+v", ans)
	}
}

func TestWSConversationalistDialFailure(t *testing.T) {
	conv, err := NewWSConversationalist(WSOptions{
		Target:           "ws://127.0.0.1:1",
		HandshakeTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new conversationalist: %v", err)
	}
	defer conv.Close()

	if _, err := conv.Ask(context.Background(), "q"); err == nil {
		t.Fatal("expected dial failure")
	}
}

func TestNewWSConversationalistValidation(t *testing.T) {
	if _, err := NewWSConversationalist(WSOptions{Target: ""}); err == nil {
		t.Fatal("blank target must be rejected")
	}
	if _, err := NewWSConversationalist(WSOptions{
		Target:  "ws://example.com",
		Headers: map[string]string{"Bad\r\nHeader": "v"},
	}); err == nil {
		t.Fatal("header with CRLF must be rejected")
	}
}
