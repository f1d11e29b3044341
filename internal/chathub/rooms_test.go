package chathub_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"workmesh/backend/internal/chathub"
	"workmesh/backend/internal/faults"
	"workmesh/backend/internal/models"
	"workmesh/backend/internal/storage"
)

// memoryStore is a concurrency-safe in-memory Storage used for the gated-room
// race tests, where a testify mock cannot model first-writer-wins semantics.
type memoryStore struct {
	mu    sync.Mutex
	rooms map[string]*models.Room // keyed by (context, pair)
	byID  map[string]*models.Room
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rooms: make(map[string]*models.Room),
		byID:  make(map[string]*models.Room),
	}
}

func pairKey(contextID, user1, user2 string) string {
	user1, user2 = models.CanonicalPair(user1, user2)
	return contextID + "|" + user1 + "|" + user2
}

func (s *memoryStore) CreateRoom(room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(room.ContextID, room.User1ID, room.User2ID)
	if existing, ok := s.rooms[key]; ok {
		// Unique-constraint conflict: hand back the winner's room.
		*room = *existing
		return nil
	}
	if room.RoomID == "" {
		room.RoomID = uuid.New().String()
	}
	stored := *room
	s.rooms[key] = &stored
	s.byID[room.RoomID] = &stored
	return nil
}

func (s *memoryStore) GetRoomByID(roomID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.byID[roomID]; ok {
		copy := *room
		return &copy, nil
	}
	return nil, storage.ErrRoomNotFound
}

func (s *memoryStore) GetGatedRoom(contextID, user1, user2 string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[pairKey(contextID, user1, user2)]; ok {
		copy := *room
		return &copy, nil
	}
	return nil, nil
}

func (s *memoryStore) ListRoomsForUser(string) ([]models.Room, error)          { return nil, nil }
func (s *memoryStore) DeactivateRoom(string) error                             { return nil }
func (s *memoryStore) SaveMessage(*models.Message) error                       { return nil }
func (s *memoryStore) ListMessages(string, int) ([]models.Message, error)      { return nil, nil }
func (s *memoryStore) TouchRoomSummary(*models.Room, *models.Message) error    { return nil }
func (s *memoryStore) MarkMessagesRead(string, string, []uint) ([]uint, error) { return nil, nil }
func (s *memoryStore) ResetUnread(string, string) error                        { return nil }
func (s *memoryStore) PublishEvent(string, models.Envelope) error              { return nil }
func (s *memoryStore) SubscribeRooms() *redis.PubSub                           { return nil }
func (s *memoryStore) SetTyping(string, string, time.Duration) error           { return nil }
func (s *memoryStore) GetTelegramChatID(string) (int64, error)                 { return 0, nil }

func TestResolveGatedRoom_CreatesAfterRelationshipCheck(t *testing.T) {
	store := newMemoryStore()
	hub := chathub.NewManagerService(store, &mockRelationship{allowed: map[string]bool{"job-42": true}})

	room, err := hub.ResolveGatedRoom("alice", "job-42", "bob")
	assert.NoError(t, err)
	assert.NotEmpty(t, room.RoomID)
	assert.Equal(t, models.RoomKindGated, room.Kind)
	assert.True(t, room.HasParticipant("alice"))
	assert.True(t, room.HasParticipant("bob"))

	// Resolving again returns the same room, not a new one.
	again, err := hub.ResolveGatedRoom("alice", "job-42", "bob")
	assert.NoError(t, err)
	assert.Equal(t, room.RoomID, again.RoomID)
}

func TestResolveGatedRoom_DeniedWithoutRelationship(t *testing.T) {
	store := newMemoryStore()
	hub := chathub.NewManagerService(store, &mockRelationship{allowed: map[string]bool{}})

	_, err := hub.ResolveGatedRoom("alice", "job-42", "bob")
	assert.Error(t, err)

	var permErr *faults.PermissionError
	assert.ErrorAs(t, err, &permErr)
	assert.Empty(t, store.rooms, "no room may exist before the relationship does")

	// Once the relationship exists, the same attempt succeeds.
	hub.Relationships = &mockRelationship{allowed: map[string]bool{"job-42": true}}
	room, err := hub.ResolveGatedRoom("alice", "job-42", "bob")
	assert.NoError(t, err)
	assert.NotNil(t, room)
}

// Both parties attempt first contact for the same engagement concurrently:
// exactly one room is created and both attempts resolve to it.
func TestResolveGatedRoom_UniqueUnderRace(t *testing.T) {
	store := newMemoryStore()
	hub := chathub.NewManagerService(store, &mockRelationship{allowed: map[string]bool{"job-42": true}})

	const attempts = 50
	results := make(chan string, attempts*2)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			room, err := hub.ResolveGatedRoom("alice", "job-42", "bob")
			assert.NoError(t, err)
			results <- room.RoomID
		}()
		go func() {
			defer wg.Done()
			room, err := hub.ResolveGatedRoom("bob", "job-42", "alice")
			assert.NoError(t, err)
			results <- room.RoomID
		}()
	}
	wg.Wait()
	close(results)

	ids := make(map[string]struct{})
	for id := range results {
		ids[id] = struct{}{}
	}
	assert.Len(t, ids, 1, "every attempt must resolve to the single winning room")
	assert.Len(t, store.rooms, 1)
}

func TestResolveGatedRoom_Validation(t *testing.T) {
	store := newMemoryStore()
	hub := chathub.NewManagerService(store, &mockRelationship{allowed: map[string]bool{"job-42": true}})

	var validErr *faults.ValidationError

	_, err := hub.ResolveGatedRoom("alice", "", "bob")
	assert.ErrorAs(t, err, &validErr)

	_, err = hub.ResolveGatedRoom("alice", "job-42", "")
	assert.ErrorAs(t, err, &validErr)

	_, err = hub.ResolveGatedRoom("alice", "job-42", "alice")
	assert.ErrorAs(t, err, &validErr)
}

func TestPostMessage_RejectsClosedRoom(t *testing.T) {
	store := newMemoryStore()
	hub := chathub.NewManagerService(store, &mockRelationship{allowed: map[string]bool{"job-42": true}})

	room, err := hub.ResolveGatedRoom("alice", "job-42", "bob")
	assert.NoError(t, err)

	store.mu.Lock()
	store.byID[room.RoomID].IsActive = false
	store.mu.Unlock()

	_, err = hub.PostMessage("alice", room.RoomID, "hello?", nil)
	var permErr *faults.PermissionError
	assert.ErrorAs(t, err, &permErr)
}
