package websocket

import "github.com/rs/zerolog/log"

// Hub maintains the set of connected feed clients and routes question and
// comment events to the groups that should see them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// A map of group IDs to the set of clients subscribed to that group.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client, client.GroupID)
			log.Info().Int("total_clients", len(h.clients)).Str("group_id", client.GroupID).Msg("Feed client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscription(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Feed client disconnected")
			}
		}
	}
}

// BroadcastToGroup sends a message to every client subscribed to the group
// and to admin clients watching all groups.
func (h *Hub) BroadcastToGroup(groupID string, message []byte) {
	h.deliver(groupID, message)
	if groupID != AllGroups {
		h.deliver(AllGroups, message)
	}
}

func (h *Hub) deliver(key string, message []byte) {
	for client := range h.subscriptions[key] {
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(h.clients, client)
			delete(h.subscriptions[key], client)
		}
	}
}

func (h *Hub) addSubscription(client *Client, groupID string) {
	if h.subscriptions[groupID] == nil {
		h.subscriptions[groupID] = make(map[*Client]bool)
	}
	h.subscriptions[groupID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for groupID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, groupID)
			}
		}
	}
}
