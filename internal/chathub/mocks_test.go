package chathub_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"workmesh/backend/internal/models"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateRoom(room *models.Room) error {
	args := m.Called(room)
	return args.Error(0)
}

func (m *MockStorage) GetRoomByID(roomID string) (*models.Room, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) GetGatedRoom(contextID, user1, user2 string) (*models.Room, error) {
	args := m.Called(contextID, user1, user2)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) ListRoomsForUser(userID string) ([]models.Room, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *MockStorage) DeactivateRoom(roomID string) error {
	args := m.Called(roomID)
	return args.Error(0)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) ListMessages(roomID string, limit int) ([]models.Message, error) {
	args := m.Called(roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) TouchRoomSummary(room *models.Room, msg *models.Message) error {
	args := m.Called(room, msg)
	return args.Error(0)
}

func (m *MockStorage) MarkMessagesRead(roomID, readerID string, messageIDs []uint) ([]uint, error) {
	args := m.Called(roomID, readerID, messageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockStorage) ResetUnread(roomID, userID string) error {
	args := m.Called(roomID, userID)
	return args.Error(0)
}

func (m *MockStorage) PublishEvent(roomID string, env models.Envelope) error {
	args := m.Called(roomID, env)
	return args.Error(0)
}

func (m *MockStorage) SubscribeRooms() *redis.PubSub {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}

func (m *MockStorage) SetTyping(roomID, userID string, ttl time.Duration) error {
	args := m.Called(roomID, userID, ttl)
	return args.Error(0)
}

func (m *MockStorage) GetTelegramChatID(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

// mockRelationship answers the qualifying-relationship check from a fixed
// allow set keyed by context id.
type mockRelationship struct {
	allowed map[string]bool
}

func (r *mockRelationship) HasQualifyingRelationship(_ context.Context, contextID, _, _ string) (bool, error) {
	return r.allowed[contextID], nil
}

// mockClient is a test double for the chathub.Client interface. Close closes
// the send channel so any hub write to a dropped connection panics the test
// instead of passing silently.
type mockClient struct {
	userID    string
	send      chan models.Envelope
	closeOnce sync.Once
	closed    atomic.Bool
}

func newMockClient(id string) *mockClient {
	return &mockClient{
		userID: id,
		send:   make(chan models.Envelope, 16), // Buffered to prevent blocking in tests
	}
}

func (c *mockClient) GetUserID() string                      { return c.userID }
func (c *mockClient) GetSendChannel() chan<- models.Envelope { return c.send }
func (c *mockClient) Run()                                   {}

func (c *mockClient) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.send)
	})
}

// drain collects everything queued for the client so far.
func (c *mockClient) drain() []models.Envelope {
	var envs []models.Envelope
	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return envs
			}
			envs = append(envs, env)
		default:
			return envs
		}
	}
}

// waitFor blocks until an envelope of the given type arrives or the timeout
// expires, returning ok=false on timeout or a closed connection.
func (c *mockClient) waitFor(envType string, timeout time.Duration) (models.Envelope, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return models.Envelope{}, false
			}
			if env.Type == envType {
				return env, true
			}
		case <-deadline:
			return models.Envelope{}, false
		}
	}
}
