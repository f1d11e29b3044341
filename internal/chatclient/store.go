package chatclient

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"workmesh/backend/internal/models"
)

// RoomStore is the client's local view of rooms and timelines. Both the live
// channel and the fallback dispatcher apply server state into the same store,
// which is what makes the transport invisible to callers.
type RoomStore struct {
	mu        sync.Mutex
	timelines map[string][]Entry
	known     map[string]map[string]struct{}
	catalog   []models.RoomSummary
	typing    *TypingTracker
}

// NewRoomStore constructor.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		timelines: make(map[string][]Entry),
		known:     make(map[string]map[string]struct{}),
		typing:    NewTypingTracker(typingWindow),
	}
}

func (s *RoomStore) knownFor(roomID string) map[string]struct{} {
	if s.known[roomID] == nil {
		s.known[roomID] = make(map[string]struct{})
	}
	return s.known[roomID]
}

// AppendLocal inserts an optimistic entry for a local send and returns the
// correlation id tracking it until the server confirmation replaces it.
func (s *RoomStore) AppendLocal(roomID, senderID, content string) string {
	corrID := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.timelines[roomID] = Merge(s.timelines[roomID], s.knownFor(roomID), Entry{
		CorrelationID: corrID,
		RoomID:        roomID,
		SenderID:      senderID,
		Content:       content,
		CreatedAt:     time.Now(),
		Pending:       true,
	})
	return corrID
}

// Apply folds one server event into the local state. Unknown event types are
// ignored so protocol additions do not break older clients.
func (s *RoomStore) Apply(env models.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch env.Type {
	case models.TypeNewMessage:
		if env.Message == nil {
			return
		}
		roomID := env.Message.RoomID
		s.timelines[roomID] = Merge(s.timelines[roomID], s.knownFor(roomID), entryFromWire(env.Message))

	case models.TypeRoomList:
		s.catalog = env.Rooms

	case models.TypeMessagesMarkedRead:
		s.applyReadMarks(env.RoomID, env.MessageIDs, env.MarkedBy)

	case models.TypeTyping:
		s.typing.Observe(env.RoomID, env.UserID)

	case models.TypeError:
		s.failPending(env.RoomID, env.CorrelationID)
	}
}

// failPending marks the optimistic entry a server rejection named. The entry
// stays in the timeline, no longer pending, so the caller can retry it.
func (s *RoomStore) failPending(roomID, correlationID string) {
	if correlationID == "" {
		return
	}
	timeline := s.timelines[roomID]
	for i := range timeline {
		if timeline[i].CorrelationID == correlationID && timeline[i].Pending {
			timeline[i].Pending = false
			timeline[i].Failed = true
			return
		}
	}
}

func (s *RoomStore) applyReadMarks(roomID string, ids []uint, markedBy string) {
	marked := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		marked[id] = struct{}{}
	}

	timeline := s.timelines[roomID]
	for i := range timeline {
		if _, ok := marked[timeline[i].ID]; !ok {
			continue
		}
		already := false
		for _, u := range timeline[i].ReadBy {
			if u == markedBy {
				already = true
				break
			}
		}
		if !already {
			timeline[i].ReadBy = append(timeline[i].ReadBy, markedBy)
		}
	}
}

// SetCatalog replaces the room catalog (fallback refresh path).
func (s *RoomStore) SetCatalog(rooms []models.RoomSummary) {
	s.mu.Lock()
	s.catalog = rooms
	s.mu.Unlock()
}

// Messages returns a copy of a room's timeline in rendered order.
func (s *RoomStore) Messages(roomID string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	timeline := s.timelines[roomID]
	out := make([]Entry, len(timeline))
	copy(out, timeline)
	return out
}

// Rooms returns a copy of the room catalog.
func (s *RoomStore) Rooms() []models.RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.RoomSummary, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// TypingUsers lists who is currently typing in a room. Indicators lapse on
// their own when not renewed.
func (s *RoomStore) TypingUsers(roomID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing.Typing(roomID)
}
