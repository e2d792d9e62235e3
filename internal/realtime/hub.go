package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ArtificalManny/sharesync/pkg/logger"
	"github.com/ArtificalManny/sharesync/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 16 // 64 KiB, control messages are tiny

	sendBufferSize = 64
)

// Hub is the event broker: it owns the connection lifecycle and pushes
// serialized events to every connection registered in the target room.
// Delivery is live-only and fire-and-forget; durability lives in the
// notification store, not here.
type Hub struct {
	registry *Registry
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu    sync.RWMutex
	conns map[string]*connection
}

// NewHub constructs a hub around the injected room registry.
func NewHub(registry *Registry) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Hub{
		registry: registry,
		conns:    make(map[string]*connection),
		log:      logger.WithModule("realtime"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Allow same-origin requests and explicit localhost development.
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				requestHost := hostWithoutPort(r.Host)
				return originHost == requestHost || isLoopback(originHost)
			},
		},
	}
}

// Registry exposes the room registry for read-side collaborators.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Serve upgrades the HTTP request to a WebSocket, assigns a connection id and
// subscribes the caller to their personal room. Blocks until the connection
// closes.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &connection{
		hub:    h,
		socket: socket,
		id:     uuid.NewString(),
		userID: userID,
		send:   make(chan Frame, sendBufferSize),
	}

	h.register(client)
	h.HandleJoin(client.id, UserRoom(userID))

	go client.writeLoop()
	client.readLoop()
}

// HandleJoin registers the connection in the room and, for project rooms,
// announces the member to everyone currently joined.
func (h *Hub) HandleJoin(connID, room string) {
	room = normalizeRoom(room)
	if room == "" {
		return
	}

	h.registry.Join(connID, room)

	if IsProjectRoom(room) {
		if userID := h.userOf(connID); userID != "" {
			h.Emit(room, UserJoined{UserID: userID})
		}
	}
}

// HandleLeave removes the connection from the room and, for project rooms,
// announces the departure to the remaining members.
func (h *Hub) HandleLeave(connID, room string) {
	room = normalizeRoom(room)
	if room == "" {
		return
	}

	h.registry.Leave(connID, room)

	if IsProjectRoom(room) {
		if userID := h.userOf(connID); userID != "" {
			h.Emit(room, UserLeft{UserID: userID})
		}
	}
}

// Emit delivers the event to every connection in the room at the moment of
// the call. Connections that joined after the membership snapshot was taken
// are not included; a slow or dead connection never delays its siblings.
// Emitting into an empty room is a no-op.
func (h *Hub) Emit(room string, event Event) {
	room = normalizeRoom(room)
	if room == "" || event == nil {
		return
	}

	members := h.registry.MembersOf(room)
	if len(members) == 0 {
		return
	}

	metrics.EventsEmitted.WithLabelValues(string(event.Kind())).Inc()

	frame := Frame{Room: room, Event: event.Kind(), Data: event}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, connID := range members {
		client, ok := h.conns[connID]
		if !ok {
			// Disconnected after the snapshot was taken; nothing to deliver.
			continue
		}
		h.enqueue(client, frame)
	}
}

// EmitToUser delivers the event to every connection in the user's personal
// room. Used for private notifications.
func (h *Hub) EmitToUser(userID string, event Event) {
	h.Emit(UserRoom(userID), event)
}

func (h *Hub) register(client *connection) {
	h.mu.Lock()
	h.conns[client.id] = client
	h.mu.Unlock()

	metrics.ActiveConnections.Inc()
}

// drop removes the connection handle and clears its room memberships in one
// pass, announcing userLeft to each project room it was part of.
func (h *Hub) drop(client *connection) {
	h.mu.Lock()
	delete(h.conns, client.id)
	h.mu.Unlock()

	metrics.ActiveConnections.Dec()

	for _, room := range h.registry.LeaveAll(client.id) {
		if IsProjectRoom(room) {
			h.Emit(room, UserLeft{UserID: client.userID})
		}
	}
}

func (h *Hub) enqueue(client *connection, frame Frame) {
	select {
	case client.send <- frame:
	default:
		metrics.DroppedDeliveries.Inc()
		h.log.Warn("dropping backpressure client",
			zap.String("user_id", client.userID),
			zap.String("conn_id", client.id),
		)
		go client.close()
	}
}

func (h *Hub) userOf(connID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, ok := h.conns[connID]; ok {
		return client.userID
	}
	return ""
}

// controlMessage is the client-to-server frame for room management.
type controlMessage struct {
	Action    string `json:"action"`
	ProjectID string `json:"projectId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

type connection struct {
	hub    *Hub
	socket *websocket.Conn
	id     string
	userID string
	send   chan Frame
	once   sync.Once
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("unexpected close",
					zap.String("user_id", c.userID), zap.Error(err))
			}
			break
		}

		if len(payload) == 0 {
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			c.hub.log.Warn("invalid control payload",
				zap.String("user_id", c.userID), zap.Error(err))
			continue
		}

		c.handleControl(ctrl)
	}
}

func (c *connection) handleControl(ctrl controlMessage) {
	switch strings.TrimSpace(ctrl.Action) {
	case "joinProject":
		if projectID := strings.TrimSpace(ctrl.ProjectID); projectID != "" {
			c.hub.HandleJoin(c.id, ProjectRoom(projectID))
		}
	case "leaveProject":
		if projectID := strings.TrimSpace(ctrl.ProjectID); projectID != "" {
			c.hub.HandleLeave(c.id, ProjectRoom(projectID))
		}
	case "joinUser":
		// Membership is server-authoritative: a client may only subscribe to
		// its own personal room, regardless of the id it sends.
		requested := strings.TrimSpace(ctrl.UserID)
		if requested != "" && requested != c.userID {
			c.hub.log.Warn("refused personal room subscription",
				zap.String("user_id", c.userID),
				zap.String("requested", requested),
			)
			return
		}
		c.hub.HandleJoin(c.id, UserRoom(c.userID))
	default:
		c.hub.log.Warn("unsupported control action",
			zap.String("action", ctrl.Action),
			zap.String("user_id", c.userID),
		)
	}
}

func (c *connection) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(frame); err != nil {
				// Failed delivery to this connection only; siblings are
				// unaffected and the client can refetch from the store.
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		c.hub.drop(c)
		close(c.send)
		_ = c.socket.Close()
	})
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		parsed, err := http.NewRequest(http.MethodGet, host, nil)
		if err == nil {
			return hostWithoutPort(parsed.URL.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
