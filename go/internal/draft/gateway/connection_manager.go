package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

// ConnectionManager fans league events out to websocket clients
type ConnectionManager struct {
	// Connection pools organized by league ID
	leagueConnections map[uuid.UUID]map[*Connection]bool
	mu                sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan broadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID       string
	UserID   string
	LeagueID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time

	// Broadcasts that arrive before the initial snapshot is queued wait in
	// pending so the client never sees an event ahead of its state.
	syncMu  sync.Mutex
	synced  bool
	pending [][]byte
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int // queued messages per client before it is dropped
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	LeagueID uuid.UUID
	Data     []byte
	Type     events.Type
}

// ConnectionStats is served on /ws/stats.
type ConnectionStats struct {
	TotalConnections  int            `json:"total_connections"`
	ActiveLeagues     int            `json:"active_leagues"`
	LeagueConnections map[string]int `json:"league_connections"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = DefaultConnectionConfig().SendBufferSize
	}
	return &ConnectionManager{
		leagueConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// Start processes broadcasts until ctx is cancelled, then closes every client.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Reserve registers a connection for leagueID before the caller reads the
// draft state, so no event published during that read is lost. Broadcasts are
// held until Upgrade queues the snapshot. Call Release if Upgrade is never
// reached.
func (cm *ConnectionManager) Reserve(userID string, leagueID uuid.UUID) *Connection {
	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		LeagueID:    leagueID,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(connection)
	return connection
}

// Release drops a reserved connection that was never upgraded.
func (cm *ConnectionManager) Release(connection *Connection) {
	cm.unregisterConnection(connection)
}

// Upgrade upgrades the request for a reserved connection, queues initial and
// then every broadcast held since Reserve.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request, connection *Connection, initial []byte) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cm.unregisterConnection(connection)
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection.syncMu.Lock()
	connection.Conn = conn
	connection.syncMu.Unlock()

	if !cm.flushPending(connection, initial) {
		cm.unregisterConnection(connection)
		conn.Close()
		return fmt.Errorf("connection %s dropped before its snapshot was sent", connection.ID)
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", connection.UserID).
		Str("league_id", connection.LeagueID.String()).
		Msg("WebSocket connection established")

	return nil
}

// flushPending reports false when the connection was dropped while it waited.
func (cm *ConnectionManager) flushPending(connection *Connection, initial []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.leagueConnections[connection.LeagueID][connection] {
		return false
	}

	connection.syncMu.Lock()
	defer connection.syncMu.Unlock()
	// Send is empty until synced and pending is capped below its capacity.
	connection.Send <- initial
	for _, data := range connection.pending {
		connection.Send <- data
	}
	connection.pending = nil
	connection.synced = true
	return true
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.leagueConnections[conn.LeagueID] == nil {
		cm.leagueConnections[conn.LeagueID] = make(map[*Connection]bool)
	}
	cm.leagueConnections[conn.LeagueID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("league_id", conn.LeagueID.String()).
		Int("total_connections", len(cm.leagueConnections[conn.LeagueID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection and closes its send channel. It
// is safe to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.leagueConnections[conn.LeagueID]
	if !exists || !connections[conn] {
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.leagueConnections, conn.LeagueID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("league_id", conn.LeagueID.String()).
		Msg("connection unregistered")
}

// BroadcastToLeague queues an event for every client of the league.
func (cm *ConnectionManager) BroadcastToLeague(event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for broadcast: %w", err)
	}

	select {
	case cm.broadcastCh <- broadcastMessage{LeagueID: event.LeagueID, Data: data, Type: event.Type}:
	default:
		log.Warn().Str("league_id", event.LeagueID.String()).Msg("broadcast channel full, dropping message")
	}
	return nil
}

func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	connections := cm.leagueConnections[message.LeagueID]
	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		if !cm.trySend(conn, message.Data) {
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.closeSocket()
		}
	}

	log.Debug().
		Str("event_type", string(message.Type)).
		Str("league_id", message.LeagueID.String()).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// trySend never blocks. It holds the read lock so the send channel cannot be
// closed underneath it.
func (cm *ConnectionManager) trySend(conn *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.leagueConnections[conn.LeagueID][conn] {
		return true
	}

	conn.syncMu.Lock()
	defer conn.syncMu.Unlock()
	if !conn.synced {
		if len(conn.pending) >= cap(conn.Send)-1 {
			return false
		}
		conn.pending = append(conn.pending, data)
		return true
	}
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

// closeSocket is a no-op for a connection that was never upgraded.
func (c *Connection) closeSocket() {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	if c.Conn != nil {
		c.Conn.Close()
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.leagueConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// Stats returns statistics about active connections
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveLeagues:     len(cm.leagueConnections),
		LeagueConnections: make(map[string]int, len(cm.leagueConnections)),
	}
	for leagueID, connections := range cm.leagueConnections {
		stats.TotalConnections += len(connections)
		stats.LeagueConnections[leagueID.String()] = len(connections)
	}
	return stats
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump keeps the read deadline alive. Clients never change draft state
// over the socket; anything they send is logged and ignored.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		log.Debug().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			Int("bytes", len(message)).
			Msg("ignoring client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
