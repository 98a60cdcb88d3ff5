package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/queryfire/queryfire/internal/pool"
	"github.com/queryfire/queryfire/internal/workload"
)

// WSOptions configures a WebSocket conversation client.
type WSOptions struct {
	Target           string
	Headers          map[string]string
	HandshakeTimeout time.Duration
	PoolSize         int
}

// WSConversationalist holds a pool of WebSocket sessions to a conversational
// backend. Each Ask sends the query as a text frame and waits for one JSON
// reply frame carrying success, answer and errorMessage.
type WSConversationalist struct {
	target   string
	headers  http.Header
	dialer   *websocket.Dialer
	sessions *pool.Pool
}

func NewWSConversationalist(opt WSOptions) (*WSConversationalist, error) {
	target := strings.TrimSpace(opt.Target)
	if target == "" {
		return nil, fmt.Errorf("target URL is required")
	}

	headers := http.Header{}
	for key, value := range opt.Headers {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" || strings.ContainsAny(trimmed, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", trimmed)
		}
		headers.Set(http.CanonicalHeaderKey(trimmed), value)
	}

	handshakeTimeout := opt.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 30 * time.Second
	}

	return &WSConversationalist{
		target:  target,
		headers: headers,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
		},
		sessions: pool.New(opt.PoolSize),
	}, nil
}

func (c *WSConversationalist) Ask(ctx context.Context, query string) (workload.Answer, error) {
	factory := func() pool.Session { return &wsSession{dialer: c.dialer, target: c.target, headers: c.headers} }

	s, reused := c.sessions.Acquire(factory)
	session := s.(*wsSession)
	if !reused {
		if err := session.Connect(ctx); err != nil {
			return workload.Answer{}, fmt.Errorf("websocket connect: %w", err)
		}
	}

	answer, err := session.exchange(ctx, query)
	if err != nil && reused {
		// A parked session may have gone stale; retry once on a fresh
		// connection before reporting failure.
		if fresh, ok := c.sessions.Refresh(ctx, session, factory); ok {
			session = fresh.(*wsSession)
			answer, err = session.exchange(ctx, query)
		}
	}
	if err != nil {
		_ = session.Close()
		return workload.Answer{}, err
	}

	_ = c.sessions.Release(session)
	return answer, nil
}

// Close releases every idle session. In-flight exchanges are unaffected.
func (c *WSConversationalist) Close() error {
	return c.sessions.Close()
}

// wsSession is a single WebSocket connection carrying one exchange at a time.
type wsSession struct {
	dialer  *websocket.Dialer
	target  string
	headers http.Header

	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("already connected")
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.target, s.headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}
	s.conn = conn
	return nil
}

func (s *wsSession) exchange(ctx context.Context, query string) (workload.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return workload.Answer{}, fmt.Errorf("not connected")
	}

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return workload.Answer{}, err
	}

	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return workload.Answer{}, err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return workload.Answer{}, fmt.Errorf("write query: %w", err)
	}

	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return workload.Answer{}, err
	}
	_, body, err := s.conn.ReadMessage()
	if err != nil {
		return workload.Answer{}, fmt.Errorf("read answer: %w", err)
	}

	return workload.Answer{
		Success:      gjson.GetBytes(body, "success").Bool(),
		Text:         gjson.GetBytes(body, "answer").String(),
		ErrorMessage: gjson.GetBytes(body, "errorMessage").String(),
	}, nil
}

func (s *wsSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	err := s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(5*time.Second),
	)
	closeErr := s.conn.Close()
	s.conn = nil

	if err != nil {
		return err
	}
	return closeErr
}
