package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdome/quizdome/backend/go/internal/v1/auth"
	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// MockTokenValidator implements types.TokenValidator for testing.
type MockTokenValidator struct {
	shouldFail bool
}

func (m *MockTokenValidator) ValidateToken(tokenString string) (*auth.CustomClaims, error) {
	if m.shouldFail {
		return nil, assert.AnError
	}
	return &auth.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "auth0|host-test",
		},
	}, nil
}

type fakeWrite struct {
	messageType int
	data        []byte
}

type fakeRead struct {
	messageType int
	data        []byte
}

// fakeConn implements wsConnection. Reads are scripted through a channel;
// writes are recorded.
type fakeConn struct {
	mu       sync.Mutex
	writes   []fakeWrite
	closed   bool
	writeErr error

	reads chan fakeRead
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan fakeRead, 16)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	r, ok := <-f.reads
	if !ok {
		return 0, nil, io.EOF
	}
	return r.messageType, r.data, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, fakeWrite{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) queueText(data string) {
	f.reads <- fakeRead{messageType: websocket.TextMessage, data: []byte(data)}
}

func (f *fakeConn) queueBinary(data []byte) {
	f.reads <- fakeRead{messageType: websocket.BinaryMessage, data: data}
}

// endReads makes the next ReadMessage fail, as a dropped connection would.
func (f *fakeConn) endReads() {
	close(f.reads)
}

func (f *fakeConn) frames() []fakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeWrite(nil), f.writes...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeRouter records dispatch calls.
type fakeRouter struct {
	mu          sync.Mutex
	messages    [][]byte
	disconnects []types.SocketIDType
}

func (r *fakeRouter) HandleMessage(_ context.Context, _ *Client, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, append([]byte(nil), data...))
}

func (r *fakeRouter) HandleDisconnect(_ context.Context, socketID types.SocketIDType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, socketID)
}

func (r *fakeRouter) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *fakeRouter) disconnected() []types.SocketIDType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.SocketIDType(nil), r.disconnects...)
}

// stubService records every use-case invocation as a formatted call string
// and returns a scripted error. discard skips recording so benchmarks do not
// accumulate call strings.
type stubService struct {
	mu      sync.Mutex
	calls   []string
	err     error
	discard bool
}

func (s *stubService) record(name string, args ...any) error {
	if s.discard {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	s.calls = append(s.calls, name+"("+strings.Join(parts, ",")+")")
	return s.err
}

func (s *stubService) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubService) CreateRoom(_ context.Context, userID string, socketID types.SocketIDType, quizID string) error {
	return s.record("CreateRoom", userID, socketID, quizID)
}

func (s *stubService) GetMyRoom(_ context.Context, userID string, socketID types.SocketIDType) error {
	return s.record("GetMyRoom", userID, socketID)
}

func (s *stubService) ForceCloseRoom(_ context.Context, userID string) error {
	return s.record("ForceCloseRoom", userID)
}

func (s *stubService) JoinRoom(_ context.Context, pin, nickname string, socketID types.SocketIDType) error {
	return s.record("JoinRoom", pin, nickname, socketID)
}

func (s *stubService) JoinAsSpectator(_ context.Context, pin, nickname string, socketID types.SocketIDType) error {
	return s.record("JoinAsSpectator", pin, nickname, socketID)
}

func (s *stubService) LeaveRoom(_ context.Context, pin string, socketID types.SocketIDType) error {
	return s.record("LeaveRoom", pin, socketID)
}

func (s *stubService) LeaveSpectator(_ context.Context, pin string, socketID types.SocketIDType) error {
	return s.record("LeaveSpectator", pin, socketID)
}

func (s *stubService) CloseRoom(_ context.Context, pin, userID string) error {
	return s.record("CloseRoom", pin, userID)
}

func (s *stubService) ReconnectHost(_ context.Context, pin, token, userID string, socketID types.SocketIDType) error {
	return s.record("ReconnectHost", pin, token, userID, socketID)
}

func (s *stubService) ReconnectPlayer(_ context.Context, pin, token string, socketID types.SocketIDType) error {
	return s.record("ReconnectPlayer", pin, token, socketID)
}

func (s *stubService) ReconnectSpectator(_ context.Context, pin, token string, socketID types.SocketIDType) error {
	return s.record("ReconnectSpectator", pin, token, socketID)
}

func (s *stubService) Disconnect(_ context.Context, socketID types.SocketIDType) error {
	return s.record("Disconnect", socketID)
}

func (s *stubService) StartGame(_ context.Context, pin, userID string) error {
	return s.record("StartGame", pin, userID)
}

func (s *stubService) StartAnswering(_ context.Context, pin, userID string) error {
	return s.record("StartAnswering", pin, userID)
}

func (s *stubService) EndAnswering(_ context.Context, pin, userID string) error {
	return s.record("EndAnswering", pin, userID)
}

func (s *stubService) ShowLeaderboard(_ context.Context, pin, userID string) error {
	return s.record("ShowLeaderboard", pin, userID)
}

func (s *stubService) NextQuestion(_ context.Context, pin, userID string) error {
	return s.record("NextQuestion", pin, userID)
}

func (s *stubService) PauseGame(_ context.Context, pin, userID string) error {
	return s.record("PauseGame", pin, userID)
}

func (s *stubService) ResumeGame(_ context.Context, pin, userID string) error {
	return s.record("ResumeGame", pin, userID)
}

func (s *stubService) SubmitAnswer(_ context.Context, pin string, socketID types.SocketIDType, answerIndex int) error {
	return s.record("SubmitAnswer", pin, socketID, answerIndex)
}

func (s *stubService) KickPlayer(_ context.Context, pin, userID, playerID string) error {
	return s.record("KickPlayer", pin, userID, playerID)
}

func (s *stubService) BanPlayer(_ context.Context, pin, userID, playerID string) error {
	return s.record("BanPlayer", pin, userID, playerID)
}

func (s *stubService) UnbanNickname(_ context.Context, pin, userID, nickname string) error {
	return s.record("UnbanNickname", pin, userID, nickname)
}

func (s *stubService) GetPlayers(_ context.Context, pin string, socketID types.SocketIDType) error {
	return s.record("GetPlayers", pin, socketID)
}

func (s *stubService) GetSpectators(_ context.Context, pin string, socketID types.SocketIDType) error {
	return s.record("GetSpectators", pin, socketID)
}

func (s *stubService) GetBannedNicknames(_ context.Context, pin string, socketID types.SocketIDType) error {
	return s.record("GetBannedNicknames", pin, socketID)
}

func (s *stubService) RequestTimerSync(_ context.Context, pin string, socketID types.SocketIDType) error {
	return s.record("RequestTimerSync", pin, socketID)
}

func (s *stubService) GetResults(_ context.Context, pin string, socketID types.SocketIDType) error {
	return s.record("GetResults", pin, socketID)
}

// receiveEnvelope pops the next queued frame off a client's send channel.
// Emission is synchronous, so an empty channel is a test failure.
func receiveEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	default:
		t.Fatalf("no frame queued for socket %s", c.socketID)
		return Envelope{}
	}
}

func requireNoFrame(t *testing.T, c *Client) {
	t.Helper()
	require.Empty(t, c.send, "unexpected frame queued for socket %s", c.socketID)
}
