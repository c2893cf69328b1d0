package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"corrguessr-backend/internal/middleware"
	"corrguessr-backend/internal/models"
	"corrguessr-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	gameEngine *services.GameEngine
	hub        *WebSocketHub
	logger     *slog.Logger
}

// WebSocketHub fans events out to every connection of a player. Only the
// hub goroutine touches the client map.
type WebSocketHub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	logger     *slog.Logger
}

type Client struct {
	PlayerID string
	Conn     *websocket.Conn
	send     chan *Message
}

type Message struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"-"`
	target   *Client
	GameID   string      `json:"game_id,omitempty"`
	Data     interface{} `json:"data"`
}

const (
	MessageGameState    = "GAME_STATE"
	MessageRoundStarted = "ROUND_STARTED"
	MessageRoundScored  = "ROUND_SCORED"
	MessageGameFinished = "GAME_FINISHED"
	MessagePing         = "PING"
	MessagePong         = "PONG"
)

func NewWebSocketHandler(gameEngine *services.GameEngine, logger *slog.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
		logger:     logger,
	}

	go hub.run()

	return &WebSocketHandler{
		gameEngine: gameEngine,
		hub:        hub,
		logger:     logger,
	}
}

// Close stops the hub and drops every connection.
func (h *WebSocketHandler) Close() {
	close(h.hub.done)
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to websocket", "error", err)
		return
	}

	client := &Client{
		PlayerID: playerID,
		Conn:     conn,
		send:     make(chan *Message, clientSendSize),
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()

	if game, err := h.gameEngine.CurrentGame(c.Request.Context(), playerID); err == nil {
		h.sendTo(client, &Message{Type: MessageGameState, GameID: game.ID, Data: game.View()})
	}

	h.readPump(client)
}

func (h *WebSocketHandler) readPump(client *Client) {
	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", "player_id", client.PlayerID, "error", err)
			}
			return
		}

		if msg.Type == MessagePing {
			h.sendTo(client, &Message{
				Type: MessagePong,
				Data: gin.H{"timestamp": time.Now().Unix()},
			})
		}
	}
}

func (c *Client) enqueue(msg *Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			if hub.clients[client.PlayerID] == nil {
				hub.clients[client.PlayerID] = make(map[*Client]struct{})
			}
			hub.clients[client.PlayerID][client] = struct{}{}
			hub.logger.Debug("websocket client registered", "player_id", client.PlayerID)

		case client := <-hub.unregister:
			hub.remove(client)

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)

		case <-hub.done:
			for _, conns := range hub.clients {
				for client := range conns {
					close(client.send)
				}
			}
			hub.clients = nil
			return
		}
	}
}

func (hub *WebSocketHub) remove(client *Client) {
	conns, ok := hub.clients[client.PlayerID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(hub.clients, client.PlayerID)
	}
	hub.logger.Debug("websocket client unregistered", "player_id", client.PlayerID)
}

// broadcastMessage drops clients that cannot keep up. Only the hub
// goroutine sends on or closes a client's send channel.
func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.target != nil {
		if _, ok := hub.clients[message.target.PlayerID][message.target]; ok {
			if !message.target.enqueue(message) {
				hub.remove(message.target)
			}
		}
		return
	}

	for client := range hub.clients[message.PlayerID] {
		if !client.enqueue(message) {
			hub.remove(client)
		}
	}
}

func (h *WebSocketHandler) sendTo(client *Client, msg *Message) {
	msg.target = client
	msg.PlayerID = client.PlayerID
	h.publish(msg)
}

func (h *WebSocketHandler) publish(msg *Message) {
	select {
	case h.hub.broadcast <- msg:
	case <-h.hub.done:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event", "type", msg.Type, "player_id", msg.PlayerID)
	}
}

func (h *WebSocketHandler) BroadcastRoundStarted(playerID string, state *models.GameState) {
	h.publish(&Message{
		Type:     MessageRoundStarted,
		PlayerID: playerID,
		GameID:   state.ID,
		Data: gin.H{
			"round":      state.Round,
			"max_rounds": state.MaxRounds,
			"points":     state.Sample.Points(),
		},
	})
}

func (h *WebSocketHandler) BroadcastRoundScored(playerID, gameID string, round models.Round) {
	h.publish(&Message{
		Type:     MessageRoundScored,
		PlayerID: playerID,
		GameID:   gameID,
		Data:     round,
	})
}

func (h *WebSocketHandler) BroadcastGameFinished(playerID, gameID string, totalError float64, rounds []models.Round) {
	h.publish(&Message{
		Type:     MessageGameFinished,
		PlayerID: playerID,
		GameID:   gameID,
		Data: gin.H{
			"total_error": models.RoundScore(totalError),
			"rounds":      rounds,
		},
	})
}
