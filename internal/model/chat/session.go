package chat

// Session is the identity a widget visitor joins a room with.
// It is fixed once the join has started.
type Session struct {
	DisplayName string `json:"name"`
	RoomID      string `json:"roomId"`
	OriginURL   string `json:"url"`
}
