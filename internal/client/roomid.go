package client

import (
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// RoomIDLength is the number of base-36 characters in a generated room id.
const RoomIDLength = 10

// NewRoomID returns a random lowercase base-36 token of RoomIDLength characters.
func NewRoomID() string {
	id := uuid.New()
	text := new(big.Int).SetBytes(id[:]).Text(36)
	if len(text) < RoomIDLength {
		text = strings.Repeat("0", RoomIDLength-len(text)) + text
	}
	return text[len(text)-RoomIDLength:]
}
