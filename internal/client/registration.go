package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/zhouzirui/chatroom/internal/model/chat"
)

// register issues the create-room call for the session's room.
func (s *Session) register(ctx context.Context, info chat.Session) error {
	form := url.Values{}
	form.Set("name", info.DisplayName)
	form.Set("url", info.OriginURL)

	token := s.ensureCSRFToken(ctx)
	endpoint := s.baseURL.JoinPath("api", "create-room", info.RoomID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return &RegistrationError{RoomID: info.RoomID, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(csrfHeaderName, token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &RegistrationError{RoomID: info.RoomID, Err: err}
	}
	defer resp.Body.Close()

	var body map[string]any
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &RegistrationError{
			RoomID:     info.RoomID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	if decodeErr != nil {
		return &RegistrationError{
			RoomID:     info.RoomID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", decodeErr),
		}
	}

	log.Printf("[client] room registered room=%s response=%v", info.RoomID, body)
	return nil
}
