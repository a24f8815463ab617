package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zhouzirui/chatroom/internal/model/chat"
	"github.com/zhouzirui/chatroom/internal/repository"
)

const maxRoomIDLength = 64

var (
	ErrRoomIDRequired = errors.New("room id is required")
	ErrInvalidRoomID  = errors.New("room id must be 1-64 letters, digits, '-' or '_'")
	ErrRoomNotFound   = errors.New("room not found")
)

// Service manages room registration on top of a RoomRepository.
type Service struct {
	rooms repository.RoomRepository
	now   func() time.Time
}

// NewService wires the room service to its storage.
func NewService(rooms repository.RoomRepository) *Service {
	return &Service{
		rooms: rooms,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateRoom registers a room under the client generated id. Registering an
// existing id returns the stored room and created=false.
func (s *Service) CreateRoom(ctx context.Context, roomID, client, url string) (chat.Room, bool, error) {
	if err := ValidateRoomID(roomID); err != nil {
		return chat.Room{}, false, err
	}

	room := chat.Room{
		ID:        roomID,
		Client:    strings.TrimSpace(client),
		URL:       strings.TrimSpace(url),
		Status:    chat.RoomWaiting,
		CreatedAt: s.now(),
	}

	err := s.rooms.Create(ctx, room)
	if errors.Is(err, repository.ErrRoomExists) {
		existing, getErr := s.GetRoom(ctx, roomID)
		return existing, false, getErr
	}
	if err != nil {
		return chat.Room{}, false, fmt.Errorf("create room %s: %w", roomID, err)
	}

	return room, true, nil
}

// GetRoom retrieves a room by identifier.
func (s *Service) GetRoom(ctx context.Context, roomID string) (chat.Room, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return chat.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return chat.Room{}, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return room, nil
}

// ListRooms returns all known rooms, newest first.
func (s *Service) ListRooms(ctx context.Context) ([]chat.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// MarkActive flags a room once an agent has spoken in it.
func (s *Service) MarkActive(ctx context.Context, roomID string) error {
	err := s.rooms.UpdateStatus(ctx, roomID, chat.RoomActive)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("mark room %s active: %w", roomID, err)
	}
	return nil
}

// ValidateRoomID checks that id is safe to use as a path segment.
func ValidateRoomID(id string) error {
	if id == "" {
		return ErrRoomIDRequired
	}
	if len(id) > maxRoomIDLength {
		return ErrInvalidRoomID
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ErrInvalidRoomID
		}
	}
	return nil
}
