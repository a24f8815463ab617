package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/chatroom/internal/model/chat"
)

const roomSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	uuid       TEXT PRIMARY KEY,
	client     TEXT NOT NULL,
	url        TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rooms_created_at ON rooms(created_at);
`

// fixed width so created_at sorts lexically
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRoomRepository persists room metadata in a SQLite file.
type SQLiteRoomRepository struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the room database at path.
func OpenSQLite(path string) (*SQLiteRoomRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open room database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(roomSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate room database: %w", err)
	}

	return &SQLiteRoomRepository{db: db}, nil
}

func (r *SQLiteRoomRepository) Create(ctx context.Context, room chat.Room) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (uuid, client, url, status, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(uuid) DO NOTHING`,
		room.ID, room.Client, room.URL, room.Status, room.CreatedAt.UTC().Format(createdAtLayout))
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	if affected == 0 {
		return ErrRoomExists
	}
	return nil
}

func (r *SQLiteRoomRepository) Get(ctx context.Context, id string) (chat.Room, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT uuid, client, url, status, created_at FROM rooms WHERE uuid = ?`, id)

	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return chat.Room{}, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func (r *SQLiteRoomRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rooms SET status = ? WHERE uuid = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update room status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update room status: %w", err)
	}
	if affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// List returns rooms newest first.
func (r *SQLiteRoomRepository) List(ctx context.Context) ([]chat.Room, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT uuid, client, url, status, created_at FROM rooms ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []chat.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (r *SQLiteRoomRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (chat.Room, error) {
	var (
		room      chat.Room
		createdAt string
	)
	if err := row.Scan(&room.ID, &room.Client, &room.URL, &room.Status, &createdAt); err != nil {
		return chat.Room{}, err
	}

	parsed, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return chat.Room{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	room.CreatedAt = parsed
	return room, nil
}
