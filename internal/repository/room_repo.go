package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/zhouzirui/chatroom/internal/model/chat"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
)

// RoomRepository stores room metadata. Messages are never stored.
type RoomRepository interface {
	Create(ctx context.Context, room chat.Room) error
	Get(ctx context.Context, id string) (chat.Room, error)
	UpdateStatus(ctx context.Context, id, status string) error
	List(ctx context.Context) ([]chat.Room, error)
	Close() error
}

// MemoryRoomRepository keeps rooms in a map for the lifetime of the process.
type MemoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]chat.Room
}

// NewMemoryRoomRepository returns an empty in-memory repository.
func NewMemoryRoomRepository() *MemoryRoomRepository {
	return &MemoryRoomRepository{rooms: make(map[string]chat.Room)}
}

func (r *MemoryRoomRepository) Create(_ context.Context, room chat.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; ok {
		return ErrRoomExists
	}
	r.rooms[room.ID] = room
	return nil
}

func (r *MemoryRoomRepository) Get(_ context.Context, id string) (chat.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return chat.Room{}, ErrRoomNotFound
	}
	return room, nil
}

func (r *MemoryRoomRepository) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	room.Status = status
	r.rooms[id] = room
	return nil
}

// List returns rooms newest first.
func (r *MemoryRoomRepository) List(_ context.Context) ([]chat.Room, error) {
	r.mu.RLock()
	rooms := make([]chat.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (r *MemoryRoomRepository) Close() error {
	return nil
}
