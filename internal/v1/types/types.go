package types

import (
	"github.com/quizdome/quizdome/backend/go/internal/v1/auth"

	"k8s.io/utils/set"
)

// --- Core Domain Types ---

// RoleType defines the role a socket holds inside a room.
type RoleType string

// SocketIDType identifies a single websocket connection for its lifetime.
type SocketIDType string

// PinType is the 6-digit public identifier of a room.
type PinType string

// PlayerIDType identifies a player within a room.
type PlayerIDType string

// SpectatorIDType identifies a spectator within a room.
type SpectatorIDType string

// QuizIDType identifies a quiz in the external quiz store.
type QuizIDType string

// TokenType is an opaque high-entropy reconnection token.
type TokenType string

// EventType names a socket event in the wire contract.
type EventType string

// Role constants define who a broadcast can target.
const (
	RoleTypeHost      RoleType = "host"      // The room owner driving the game
	RoleTypePlayer    RoleType = "player"    // Active answering participant
	RoleTypeSpectator RoleType = "spectator" // Read-only observer
	RoleTypeUnknown   RoleType = "unknown"   // Default/unknown state
)

// --- Shared Interfaces ---

// TokenValidator defines the interface for JWT token authentication services.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.CustomClaims, error)
}

// Broadcaster delivers socket events to rooms and individual sockets.
// The transport layer implements it; use-cases, the timer service, and the
// reaper emit through it so event ordering follows the emitting critical
// section.
type Broadcaster interface {
	// JoinGroup binds a socket to a room's broadcast group under a role.
	JoinGroup(pin PinType, socketID SocketIDType, role RoleType)
	// LeaveGroup removes a socket from a room's broadcast group. Idempotent.
	LeaveGroup(pin PinType, socketID SocketIDType)
	// Broadcast sends an event to every socket in the pin group. A nil or
	// empty role set means all roles.
	Broadcast(pin PinType, event EventType, payload any, roles set.Set[RoleType])
	// Unicast sends an event to a single socket, in or out of any group.
	Unicast(socketID SocketIDType, event EventType, payload any)
	// CloseGroup disconnects every socket in the group and drops the group.
	CloseGroup(pin PinType)
}
