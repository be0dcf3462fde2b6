package transport

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/quizdome/quizdome/backend/go/internal/v1/auth"
	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
	"github.com/quizdome/quizdome/backend/go/internal/v1/metrics"
	"github.com/quizdome/quizdome/backend/go/internal/v1/ratelimit"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// Router consumes inbound frames and socket drops. The dispatcher implements
// it; tests swap in fakes.
type Router interface {
	HandleMessage(ctx context.Context, c *Client, data []byte)
	HandleDisconnect(ctx context.Context, socketID types.SocketIDType)
}

// groupMember pairs a client with the role it holds in its room, so role
// filtered broadcasts resolve without touching the store.
type groupMember struct {
	client *Client
	role   types.RoleType
}

// Hub owns every live socket and the per-room broadcast groups. It
// implements types.Broadcaster; use-cases emit through it while holding the
// room lock, which is what keeps events totally ordered per room.
type Hub struct {
	mu         sync.RWMutex
	clients    map[types.SocketIDType]*Client
	groups     map[types.PinType]map[types.SocketIDType]groupMember
	membership map[types.SocketIDType]types.PinType

	validator   types.TokenValidator
	rateLimiter *ratelimit.RateLimiter
	router      Router
}

// NewHub creates a Hub. SetRouter must be called before ServeWs accepts
// connections.
func NewHub(validator types.TokenValidator, rateLimiter *ratelimit.RateLimiter) *Hub {
	return &Hub{
		clients:     make(map[types.SocketIDType]*Client),
		groups:      make(map[types.PinType]map[types.SocketIDType]groupMember),
		membership:  make(map[types.SocketIDType]types.PinType),
		validator:   validator,
		rateLimiter: rateLimiter,
	}
}

// SetRouter wires the message dispatcher. Split from NewHub because the
// service needs the hub as its Broadcaster before the dispatcher exists.
func (h *Hub) SetRouter(r Router) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.router = r
}

// ServeWs upgrades an HTTP request to a WebSocket session. Hosts present a
// JWT via the Sec-WebSocket-Protocol header; players and spectators connect
// anonymously and earn their access through room tokens.
func (h *Hub) ServeWs(c *gin.Context) {
	// IP rate limit first, before any validation work.
	if h.rateLimiter != nil && !h.rateLimiter.CheckWebSocket(c) {
		return // Response already written by CheckWebSocket
	}

	allowedOrigins := auth.GetAllowedOriginsFromEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	if err := validateOrigin(c.Request, allowedOrigins); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	tokenResult, err := h.extractToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	userID := ""
	if tokenResult.Token != "" {
		claims, err := h.authenticateUser(tokenResult.Token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID = claims.Subject
	}

	conn, err := h.upgradeWebSocket(c, allowedOrigins, tokenResult)
	if err != nil {
		return
	}

	h.HandleConnection(conn, userID)
}

// HandleConnection registers an established connection and starts its pumps.
func (h *Hub) HandleConnection(conn wsConnection, userID string) *Client {
	client := newClient(h, conn, types.SocketIDType(uuid.NewString()), userID)

	h.mu.Lock()
	h.clients[client.socketID] = client
	h.mu.Unlock()

	metrics.IncConnection()
	logging.Info(context.Background(), "socket connected",
		zap.String("socketId", string(client.socketID)),
		zap.Bool("authenticated", userID != ""))

	go client.writePump()
	go client.readPump()
	return client
}

// route hands an inbound frame to the dispatcher.
func (h *Hub) route(ctx context.Context, c *Client, data []byte) {
	h.mu.RLock()
	router := h.router
	h.mu.RUnlock()

	if router == nil {
		logging.Error(ctx, "no router bound, dropping frame",
			zap.String("socketId", string(c.socketID)))
		return
	}
	router.HandleMessage(ctx, c, data)
}

// unregister tears down a dead socket. The service hears about it first so
// it can mark grace state while the socket index still resolves; group
// membership is hub-owned and cleaned afterwards.
func (h *Hub) unregister(c *Client) {
	h.mu.RLock()
	router := h.router
	h.mu.RUnlock()

	if router != nil {
		router.HandleDisconnect(context.Background(), c.socketID)
	}

	h.mu.Lock()
	delete(h.clients, c.socketID)
	if pin, ok := h.membership[c.socketID]; ok {
		h.removeFromGroupLocked(pin, c.socketID)
	}
	h.mu.Unlock()

	c.Disconnect()
	logging.Info(context.Background(), "socket disconnected",
		zap.String("socketId", string(c.socketID)))
}

// JoinGroup implements types.Broadcaster. A socket belongs to at most one
// group; joining a second moves it.
func (h *Hub) JoinGroup(pin types.PinType, socketID types.SocketIDType, role types.RoleType) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[socketID]
	if !ok {
		logging.Warn(context.Background(), "group join for unknown socket",
			zap.String("socketId", string(socketID)), zap.String("pin", string(pin)))
		return
	}

	if prev, ok := h.membership[socketID]; ok && prev != pin {
		h.removeFromGroupLocked(prev, socketID)
	}

	group, ok := h.groups[pin]
	if !ok {
		group = make(map[types.SocketIDType]groupMember)
		h.groups[pin] = group
	}
	group[socketID] = groupMember{client: client, role: role}
	h.membership[socketID] = pin
}

// LeaveGroup implements types.Broadcaster. Idempotent.
func (h *Hub) LeaveGroup(pin types.PinType, socketID types.SocketIDType) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.membership[socketID] == pin {
		h.removeFromGroupLocked(pin, socketID)
	}
}

func (h *Hub) removeFromGroupLocked(pin types.PinType, socketID types.SocketIDType) {
	if group, ok := h.groups[pin]; ok {
		delete(group, socketID)
		if len(group) == 0 {
			delete(h.groups, pin)
		}
	}
	delete(h.membership, socketID)
}

// Broadcast implements types.Broadcaster. The envelope is marshaled once and
// shared across recipients; a nil or empty role set targets every role.
func (h *Hub) Broadcast(pin types.PinType, event types.EventType, payload any, roles set.Set[types.RoleType]) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logging.Error(context.Background(), "failed to encode broadcast",
			zap.String("event", string(event)), zap.Error(err))
		return
	}

	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.groups[pin]))
	for _, member := range h.groups[pin] {
		if roles.Len() == 0 || roles.Has(member.role) {
			recipients = append(recipients, member.client)
		}
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		client.enqueue(data)
	}
}

// Unicast implements types.Broadcaster. The socket does not have to be in
// any group; reconnect acks go out before the group join.
func (h *Hub) Unicast(socketID types.SocketIDType, event types.EventType, payload any) {
	h.mu.RLock()
	client, ok := h.clients[socketID]
	h.mu.RUnlock()

	if !ok {
		return
	}
	client.sendEvent(event, payload)
}

// CloseGroup implements types.Broadcaster. Members get a close frame after
// their already-queued envelopes drain.
func (h *Hub) CloseGroup(pin types.PinType) {
	h.mu.Lock()
	group := h.groups[pin]
	delete(h.groups, pin)
	members := make([]*Client, 0, len(group))
	for socketID, member := range group {
		delete(h.membership, socketID)
		members = append(members, member.client)
	}
	h.mu.Unlock()

	for _, client := range members {
		client.Disconnect()
	}
}

// Shutdown disconnects every socket. Call after Service.Shutdown so close
// reasons reach clients before the close frames.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[types.SocketIDType]*Client)
	h.groups = make(map[types.PinType]map[types.SocketIDType]groupMember)
	h.membership = make(map[types.SocketIDType]types.PinType)
	h.mu.Unlock()

	for _, client := range clients {
		client.Disconnect()
	}
	logging.Info(ctx, "hub shut down", zap.Int("sockets", len(clients)))
}
