package ws

import "sync"

// Hub is the room fabric. Rooms are plain names (user:<id>,
// conversation:<id>, post:<type>:<id>); membership is per connection so one
// user's tabs can sit in different rooms independently.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // connection id -> client
	rooms   map[string]map[string]*Client // room -> connection id -> client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Register admits a client and auto-joins its own user room, so targeted
// per-user events reach every tab without knowing connection ids.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.joinLocked(UserRoom(c.UserID), c)
}

// Unregister removes the client from every room it joined.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.ID)
	for room, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Join is idempotent; joining an unknown connection is a no-op.
func (h *Hub) Join(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	h.joinLocked(room, c)
}

func (h *Hub) joinLocked(room string, c *Client) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.ID] = c
}

// Leave is idempotent.
func (h *Hub) Leave(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast delivers an event to every connection in the room, once each.
func (h *Hub) Broadcast(room, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		c.Send(event, payload)
	}
}

// BroadcastExcept skips the originating connection, for typing echoes.
func (h *Hub) BroadcastExcept(room, exceptConnID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.rooms[room] {
		if id == exceptConnID {
			continue
		}
		c.Send(event, payload)
	}
}

// BroadcastAll reaches every connected client regardless of rooms. Presence is
// globally visible.
func (h *Hub) BroadcastAll(event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Send(event, payload)
	}
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
