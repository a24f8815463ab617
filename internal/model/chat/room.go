package chat

import "time"

// Room statuses.
const (
	RoomWaiting = "waiting"
	RoomActive  = "active"
)

// Room is a server side conversation channel keyed by the client generated id.
type Room struct {
	ID        string    `json:"uuid"`
	Client    string    `json:"client"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
