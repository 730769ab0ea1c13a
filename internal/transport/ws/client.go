package ws

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"insider/internal/app"
	"insider/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256

	maxNameLength = 32
)

// Client represents a WebSocket client connection
type Client struct {
	conn   *websocket.Conn
	engine *app.Engine
	hub    *Hub
	send   chan []byte
	done   chan struct{}
	logger zerolog.Logger

	mu            sync.Mutex
	participantID string
	closed        bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, engine *app.Engine, hub *Hub, participantID string, logger zerolog.Logger) *Client {
	return &Client{
		conn:          conn,
		engine:        engine,
		hub:           hub,
		participantID: participantID,
		send:          make(chan []byte, sendBufferSize),
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// ParticipantID returns the participant this connection currently speaks for
func (c *Client) ParticipantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participantID
}

// Send writes an event to this connection only
func (c *Client) Send(event *domain.GameEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Msg("marshal event")
		return
	}
	c.enqueue(data)
}

// enqueue queues raw bytes without blocking
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, message dropped
		c.logger.Warn().Str("participant", c.participantID).Msg("send buffer full, message dropped")
	}
}

// Close shuts the connection down
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		id := c.ParticipantID()
		if c.hub.Unregister(id, c) {
			if _, err := c.engine.Disconnect(id); err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
				c.logger.Debug().Err(err).Str("participant", id).Msg("disconnect")
			}
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one command and dispatches it
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	var err error
	switch msg.Type {
	case MsgCreateSession:
		err = c.handleCreateSession(msg.Payload)
	case MsgJoinSession:
		err = c.handleJoinSession(msg.Payload)
	case MsgReconnect:
		err = c.handleReconnect(msg.Payload)
	case MsgLeaveSession:
		_, err = c.engine.LeaveSession(c.ParticipantID())
	case MsgStartGame:
		err = c.inSession(func(code, id string) error { return c.engine.StartGame(code, id) })
	case MsgResetGame:
		err = c.inSession(func(code, id string) error { return c.engine.ResetGame(code, id) })
	case MsgAskQuestion:
		var p AskQuestionPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = c.inSession(func(code, id string) error { return c.engine.AskQuestion(code, id, p.Text) })
		}
	case MsgAnswerQuestion:
		var p AnswerQuestionPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = c.inSession(func(code, id string) error { return c.engine.AnswerQuestion(code, id, p.RecordID, p.Answer) })
		}
	case MsgGuessWord:
		var p GuessWordPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = c.inSession(func(code, id string) error { return c.engine.GuessWord(code, id, p.Word) })
		}
	case MsgApproveGuess:
		var p ApproveGuessPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = c.inSession(func(code, id string) error { return c.engine.ApproveGuess(code, id, p.RecordID, p.Approved) })
		}
	case MsgSubmitVote:
		var p SubmitVotePayload
		if err = decode(msg.Payload, &p); err == nil {
			err = c.inSession(func(code, id string) error { return c.engine.SubmitVote(code, id, p.TargetID) })
		}
	case MsgSubmitInitialVote:
		var p SubmitInitialVotePayload
		if err = decode(msg.Payload, &p); err == nil {
			err = c.inSession(func(code, id string) error { return c.engine.SubmitInitialVote(code, id, p.VotesYes) })
		}
	case MsgPing:
		c.Send(domain.NewEvent(EventPong, "", nil))
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
		return
	}

	if err != nil {
		c.reject(msg.Type, err)
	}
}

// errInvalidPayload marks a command whose payload could not be used
var errInvalidPayload = errors.New("invalid payload")

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errInvalidPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errInvalidPayload
	}
	return nil
}

// inSession runs fn with the code of the caller's current session
func (c *Client) inSession(fn func(code, participantID string) error) error {
	id := c.ParticipantID()
	code, ok := c.engine.Registry().SessionOf(id)
	if !ok {
		return domain.ErrParticipantNotFound
	}
	return fn(code, id)
}

func (c *Client) handleCreateSession(raw json.RawMessage) error {
	var p CreateSessionPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	name, err := cleanName(p.Name)
	if err != nil {
		return err
	}

	_, err = c.engine.CreateSession(c.ParticipantID(), name)
	return err
}

func (c *Client) handleJoinSession(raw json.RawMessage) error {
	var p JoinSessionPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	name, err := cleanName(p.Name)
	if err != nil {
		return err
	}

	_, err = c.engine.JoinSession(app.NormalizeCode(p.Code), c.ParticipantID(), name)
	return err
}

// handleReconnect takes over an earlier participant identity
func (c *Client) handleReconnect(raw json.RawMessage) error {
	var p ReconnectPayload
	if err := decode(raw, &p); err != nil {
		return err
	}

	current := c.ParticipantID()
	if current != p.ParticipantID {
		if _, member := c.engine.Registry().SessionOf(current); member {
			return domain.ErrAlreadyInSession
		}
	}

	code := app.NormalizeCode(p.Code)
	view, err := c.engine.Reconnect(code, p.ParticipantID, p.Token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.participantID = p.ParticipantID
	c.mu.Unlock()

	if stale := c.hub.Rebind(current, p.ParticipantID, c); stale != nil {
		stale.Close()
	}

	c.Send(domain.NewEvent(domain.EventSessionJoined, code, &domain.SessionJoinedPayload{
		View:          view,
		ParticipantID: p.ParticipantID,
		Token:         p.Token,
	}))

	c.logger.Info().Str("code", code).Str("participant", p.ParticipantID).Msg("participant resumed")
	return nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrEmptyText
	}
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name, nil
}

// reject turns a failed command into an error event
func (c *Client) reject(msgType MessageType, err error) {
	if errors.Is(err, errInvalidPayload) {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload for "+string(msgType))
		return
	}

	code := errorCode(err)
	if code == ErrCodeInternalError {
		c.logger.Error().Err(err).Str("type", string(msgType)).Msg("command failed")
	}
	c.sendError(code, err.Error())
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	c.Send(domain.NewEvent(domain.EventError, "", &domain.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
