package models

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	PeerMessageType    = "peer_message"
	ChannelMessageType = "channel_message"
	TypingMessageType  = "typing"
)

type WebSocketMessage struct {
	Type       string          `json:"type"`
	PeerMsg    *PeerMessage    `json:"peer_message,omitempty"`
	ChannelMsg *ChannelMessage `json:"channel_message,omitempty"`
	ReceiverID uint            `json:"receiver_id,omitempty"`
	SenderID   uint            `json:"sender_id,omitempty"`
}

type ClientConnection struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uint
}

// Hub tracks live websocket connections. A user may be connected from several
// devices at once, so PeerConnections maps a user id to all of its connections.
type Hub struct {
	Clients              map[*ClientConnection]bool
	PeerConnections      map[uint][]*ClientConnection
	ChannelSubscriptions map[uint][]*ClientConnection
	Register             chan *ClientConnection
	Unregister           chan *ClientConnection
	mu                   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:              make(map[*ClientConnection]bool),
		PeerConnections:      make(map[uint][]*ClientConnection),
		ChannelSubscriptions: make(map[uint][]*ClientConnection),
		Register:             make(chan *ClientConnection),
		Unregister:           make(chan *ClientConnection),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			h.PeerConnections[client.UserID] = append(h.PeerConnections[client.UserID], client)
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)

				connections := h.PeerConnections[client.UserID]
				for i, conn := range connections {
					if conn == client {
						h.PeerConnections[client.UserID] = append(connections[:i], connections[i+1:]...)
						break
					}
				}

				for channelID, subscribers := range h.ChannelSubscriptions {
					for i, subscriber := range subscribers {
						if subscriber == client {
							h.ChannelSubscriptions[channelID] = append(subscribers[:i], subscribers[i+1:]...)
							break
						}
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToUser delivers a raw message to every live connection of a user.
// Run closes Send under the write lock on unregister, so the read lock must
// be held for the whole send loop.
func (h *Hub) BroadcastToUser(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.PeerConnections[userID] {
		select {
		case client.Send <- message:
		default:
		}
	}
}

// BroadcastToChannel delivers a raw message to every subscriber of a channel.
func (h *Hub) BroadcastToChannel(channelID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.ChannelSubscriptions[channelID] {
		select {
		case client.Send <- message:
		default:
		}
	}
}

func (h *Hub) SubscribeToChannel(channelID uint, client *ClientConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ChannelSubscriptions[channelID] = append(h.ChannelSubscriptions[channelID], client)
}

func (h *Hub) UnsubscribeFromChannel(channelID uint, client *ClientConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers := h.ChannelSubscriptions[channelID]
	for i, subscriber := range subscribers {
		if subscriber == client {
			h.ChannelSubscriptions[channelID] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
}

// MarshalEvent is a convenience for hub broadcasts built outside the ws loop.
func MarshalEvent(msg WebSocketMessage) []byte {
	b, _ := json.Marshal(msg)
	return b
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *ClientConnection) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
