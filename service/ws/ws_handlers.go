package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/models"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/utils"
	"gorm.io/gorm"
)

type ChatHandler struct {
	db  *gorm.DB
	hub *models.Hub
}

// NewChatHandler initializes a new chat handler and starts its hub.
func NewChatHandler(db *gorm.DB) *ChatHandler {
	hub := models.NewHub()
	go hub.Run()

	return &ChatHandler{
		db:  db,
		hub: hub,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	// WebSocket connection
	router.HandleFunc("/ws", utils.AuthMiddleware(h.HandleWebSocket))

	// Channel routes
	router.HandleFunc("/channels", utils.AuthMiddleware(h.CreateChannel)).Methods("POST")
	router.HandleFunc("/channels", h.GetChannels).Methods("GET")
	router.HandleFunc("/channels/{id}", h.GetChannel).Methods("GET")
	router.HandleFunc("/channels/{id}/join", utils.AuthMiddleware(h.JoinChannel)).Methods("POST")
	router.HandleFunc("/channels/{id}/members", utils.AuthMiddleware(h.GetChannelMembers)).Methods("GET")

	// Message routes
	router.HandleFunc("/messages/peer/{userId}", utils.AuthMiddleware(h.GetPeerMessages)).Methods("GET")
	router.HandleFunc("/channels/{id}/messages", utils.AuthMiddleware(h.GetChannelMessages)).Methods("GET")
}

// HandleWebSocket upgrades the connection and wires the client into the hub.
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v\n", err)
		return
	}

	log.Printf("WebSocket connection established for user %d\n", userID)

	client := &models.ClientConnection{
		Hub:    h.hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: userID,
	}

	// Subscribe to all channels the user is a member of
	var channels []models.Channel
	if err := h.db.Joins("JOIN channel_clients ON channels.id = channel_clients.channel_id").
		Joins("JOIN clients ON channel_clients.client_id = clients.id").
		Where("clients.user_id = ?", userID).
		Find(&channels).Error; err == nil {
		for _, channel := range channels {
			h.hub.SubscribeToChannel(channel.ID, client)
		}
	}

	h.hub.Register <- client

	go client.WritePump()
	go h.handleClientMessages(client)
}

func (h *ChatHandler) handleClientMessages(client *models.ClientConnection) {
	defer func() {
		h.hub.Unregister <- client
		client.Conn.Close()
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		var wsMsg models.WebSocketMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			log.Printf("error unmarshaling message: %v", err)
			continue
		}

		switch wsMsg.Type {
		case models.PeerMessageType:
			if wsMsg.PeerMsg == nil {
				continue
			}
			wsMsg.PeerMsg.SenderID = client.UserID
			wsMsg.PeerMsg.CreatedAt = time.Now()

			if err := h.db.Create(wsMsg.PeerMsg).Error; err != nil {
				log.Printf("error saving peer message: %v", err)
				continue
			}

			msgBytes := models.MarshalEvent(wsMsg)
			h.hub.BroadcastToUser(wsMsg.PeerMsg.ReceiverID, msgBytes)

		case models.ChannelMessageType:
			if wsMsg.ChannelMsg == nil {
				continue
			}
			wsMsg.ChannelMsg.SenderID = client.UserID
			wsMsg.ChannelMsg.CreatedAt = time.Now()

			if err := h.db.Create(wsMsg.ChannelMsg).Error; err != nil {
				log.Printf("error saving channel message: %v", err)
				continue
			}

			msgBytes := models.MarshalEvent(wsMsg)
			h.hub.BroadcastToChannel(wsMsg.ChannelMsg.ChannelID, msgBytes)

		case models.TypingMessageType:
			// Typing indicators are relayed, never stored.
			wsMsg.SenderID = client.UserID
			msgBytes := models.MarshalEvent(wsMsg)
			if wsMsg.ReceiverID != 0 {
				h.hub.BroadcastToUser(wsMsg.ReceiverID, msgBytes)
			}
		}
	}
}

// CreateChannel handles channel creation
func (h *ChatHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var channelRequest struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&channelRequest); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if channelRequest.Name == "" {
		http.Error(w, "Channel name is required", http.StatusBadRequest)
		return
	}

	channel := models.Channel{
		Name: channelRequest.Name,
		Type: models.ChannelGroup,
	}
	if err := h.db.Create(&channel).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(channel)
}

// GetChannels returns all available channels
func (h *ChatHandler) GetChannels(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Channel{})
	if channelType := r.URL.Query().Get("type"); channelType != "" {
		query = query.Where("type = ?", channelType)
	}

	var channels []models.Channel
	if err := query.Find(&channels).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(channels)
}

// GetChannel returns a specific channel
func (h *ChatHandler) GetChannel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	channelID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	var channel models.Channel
	if err := h.db.First(&channel, channelID).Error; err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(channel)
}

// JoinChannel handles joining a channel
func (h *ChatHandler) JoinChannel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	channelID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var channel models.Channel
	if err := h.db.First(&channel, channelID).Error; err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	// Classroom channels are reserved for the booking's parties; they are
	// joined through the classroom endpoint, not here.
	if channel.Type == models.ChannelClassroom {
		http.Error(w, "Classroom channels cannot be joined directly", http.StatusForbidden)
		return
	}

	var client models.Client
	result := h.db.FirstOrCreate(&client, models.Client{UserID: userID})
	if result.Error != nil {
		http.Error(w, result.Error.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.db.Model(&channel).Association("Clients").Append(&client); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetPeerMessages retrieves peer-to-peer messages
func (h *ChatHandler) GetPeerMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	peerID, err := strconv.ParseUint(vars["userId"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var messages []models.PeerMessage
	if err := h.db.Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userID, peerID, peerID, userID,
	).Order("created_at asc").Find(&messages).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messages)
}

// GetChannelMessages retrieves messages from a channel. Only members may
// read the history; classroom channels admit their booking's parties through
// the classroom endpoint, which enrolls them as members.
func (h *ChatHandler) GetChannelMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	channelID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	member, err := h.isChannelMember(uint(channelID), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !member {
		http.Error(w, "Not a channel member", http.StatusForbidden)
		return
	}

	var messages []models.ChannelMessage
	if err := h.db.Where("channel_id = ?", channelID).
		Order("created_at asc").
		Find(&messages).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messages)
}

func (h *ChatHandler) isChannelMember(channelID, userID uint) (bool, error) {
	var count int64
	err := h.db.Table("channel_clients").
		Joins("JOIN clients ON channel_clients.client_id = clients.id").
		Where("channel_clients.channel_id = ? AND clients.user_id = ?", channelID, userID).
		Count(&count).Error
	return count > 0, err
}

func (h *ChatHandler) GetChannelMembers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	channelID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	var channel models.Channel
	if err := h.db.First(&channel, channelID).Error; err != nil {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return
	}

	var members []models.Client
	if err := h.db.Model(&channel).Association("Clients").Find(&members); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(members)
}
