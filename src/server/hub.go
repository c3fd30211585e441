package server

import (
	"encoding/json"
	"net/http"

	"mt5-bridge/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// runHub owns the client set until Stop.
func (s *APIServer) runHub() {
	defer func() {
		for client := range s.clients {
			close(client.send)
		}
		s.clients = make(map[*Client]struct{})
		s.setConnections(0)
	}()

	for {
		select {
		case <-s.quit:
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.setConnections(len(s.clients))
			s.Logger.Info("Client %s connected", client.id)

			client.send <- s.LatestView()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.setConnections(len(s.clients))
			}

		case view := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- view:
				default:
					// slow consumer, prune so the hub never blocks
					s.Logger.Warning("Client %s too slow, disconnecting", client.id)
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.setConnections(len(s.clients))
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateView stores the latest view without pushing it.
func (s *APIServer) UpdateView(view models.MBridgeView) {
	s.stateMutex.Lock()
	s.latestView = &view
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// Broadcast stores the view and queues it for the hub. A full queue drops the
// push; the stored view stays current for /api/state and new clients.
func (s *APIServer) Broadcast(view models.MBridgeView) {
	s.UpdateView(view)

	select {
	case s.broadcast <- &view:
	default:
		s.Logger.Debug("Broadcast queue full, dropping push")
	}
}

// -----------------------------------------------------------------------------
// Helper Methods
// -----------------------------------------------------------------------------

func (s *APIServer) LatestView() *models.MBridgeView {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.latestView
}

func (s *APIServer) setConnections(n int) {
	s.stateMutex.Lock()
	s.connections = n
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  s,
		conn: conn,
		send: make(chan *models.MBridgeView, 64),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

type clientCommand struct {
	Command string `json:"command"`
}

// HandleClientMessage re-broadcasts the latest view on {"command":"refresh"}.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse message from client %s: %v, disconnecting", client.id, err)
		client.conn.Close()
		return
	}

	if cmd.Command != "refresh" {
		return
	}

	// the hub may close send concurrently, so go through the hub
	select {
	case s.broadcast <- s.LatestView():
	default:
	}
}
