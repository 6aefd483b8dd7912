package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mentor_chat/internal/domain"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

const (
	EnvelopeTypeMessage = "message"
	EnvelopeTypeError   = "error"

	maxMessageSize = 64 * 1024
)

// Handlers receive the events of one connection. They run on the
// connection's read goroutine and must not call Disconnect.
type Handlers struct {
	OnMessage func(domain.Message)
	OnError   func(error)
	OnOpen    func()
	OnClose   func()
}

type Config struct {
	URL         string
	DialTimeout time.Duration
	WriteWait   time.Duration
	PongWait    time.Duration
}

// envelope is the message-store wire format.
type envelope struct {
	Type           string        `json:"type"`
	ID             domain.FlexID `json:"id,omitempty"`
	ConversationID domain.FlexID `json:"conversation_id,omitempty"`
	SenderID       domain.FlexID `json:"sender_id,omitempty"`
	SenderName     string        `json:"sender_name,omitempty"`
	Content        string        `json:"content"`
	Timestamp      *time.Time    `json:"timestamp,omitempty"`
	Read           bool          `json:"read,omitempty"`
	Error          string        `json:"error,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// session is one dialed connection.
type session struct {
	conn           *websocket.Conn
	conversationID string
	handlers       Handlers
	done           chan struct{}
	writeMu        sync.Mutex

	mu      sync.Mutex
	closing bool
}

// Client owns at most one live connection to the message-store transport.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	log    logger.Logger

	mu      sync.Mutex
	current *session
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.DialTimeout,
		},
		log: log,
	}
}

func (c *Client) endpoint(conversationID, credential string) (string, error) {
	base, err := url.Parse(strings.TrimRight(c.cfg.URL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid transport url: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	}
	base.Path += "/ws/chat/" + conversationID
	base.RawQuery = url.Values{"token": {credential}}.Encode()
	return base.String(), nil
}

// Connect dials the conversation. Any existing connection is torn down first.
func (c *Client) Connect(ctx context.Context, conversationID, credential string, h Handlers) error {
	if err := c.Disconnect(); err != nil {
		return err
	}

	endpoint, err := c.endpoint(conversationID, credential)
	if err != nil {
		return err
	}

	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to dial transport: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("failed to dial transport: %w", err)
	}

	s := &session{
		conn:           conn,
		conversationID: conversationID,
		handlers:       h,
		done:           make(chan struct{}),
	}

	c.mu.Lock()
	c.current = s
	c.mu.Unlock()

	c.log.Info("Transport connected", "conversation_id", conversationID)

	if h.OnOpen != nil {
		h.OnOpen()
	}

	go c.readPump(s)
	go c.pingPump(s)

	return nil
}

func (c *Client) readPump(s *session) {
	defer func() {
		c.mu.Lock()
		if c.current == s {
			c.current = nil
		}
		c.mu.Unlock()

		s.conn.Close()
		if s.handlers.OnClose != nil {
			s.handlers.OnClose()
		}
		close(s.done)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if !s.isClosing() {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.log.Warn("Transport closed unexpectedly", "conversation_id", s.conversationID, "error", err)
				}
				if s.handlers.OnError != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					s.handlers.OnError(err)
				}
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("Invalid transport frame", "conversation_id", s.conversationID, "error", err)
			continue
		}

		switch env.Type {
		case EnvelopeTypeMessage, "":
			if s.handlers.OnMessage != nil {
				s.handlers.OnMessage(env.toMessage(s.conversationID))
			}
		case EnvelopeTypeError:
			if s.handlers.OnError != nil {
				s.handlers.OnError(errors.New(env.Error))
			}
		default:
			c.log.Debug("Ignoring transport frame", "type", env.Type)
		}
	}
}

func (c *Client) pingPump(s *session) {
	ticker := time.NewTicker(c.cfg.PongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// SendMessage writes one outbound chat line on the current connection.
func (c *Client) SendMessage(content string) error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s == nil || s.isClosing() {
		return apperrors.ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := s.conn.WriteJSON(outbound{Type: EnvelopeTypeMessage, Content: content}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Disconnect closes the current connection and returns once its read loop has exited.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.cfg.WriteWait))
	s.writeMu.Unlock()

	s.conn.Close()
	<-s.done

	c.log.Info("Transport disconnected", "conversation_id", s.conversationID)
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && !c.current.isClosing()
}

func (s *session) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (e envelope) toMessage(conversationID string) domain.Message {
	roomID := e.ConversationID.String()
	if roomID == "" {
		roomID = conversationID
	}
	ts := time.Now().UTC()
	if e.Timestamp != nil && !e.Timestamp.IsZero() {
		ts = *e.Timestamp
	}
	return domain.Message{
		ID:         e.ID.String(),
		RoomID:     roomID,
		SenderID:   e.SenderID.String(),
		SenderName: e.SenderName,
		Content:    e.Content,
		Timestamp:  ts,
		Read:       e.Read,
	}
}
