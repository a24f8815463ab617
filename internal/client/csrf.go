package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
)

const (
	csrfCookieName = "csrftoken"
	csrfHeaderName = "X-CSRFToken"
)

// Prime loads the widget page so the server can hand out its csrftoken cookie.
func (s *Session) Prime(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("build page request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("load page: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("load page: unexpected status %s", resp.Status)
	}
	return nil
}

// csrfToken returns the URL-decoded csrftoken cookie for the base URL, or "".
func (s *Session) csrfToken() string {
	if s.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range s.httpClient.Jar.Cookies(s.baseURL) {
		if cookie.Name != csrfCookieName {
			continue
		}
		value, err := url.PathUnescape(cookie.Value)
		if err != nil {
			return cookie.Value
		}
		return value
	}
	return ""
}

func (s *Session) ensureCSRFToken(ctx context.Context) string {
	if token := s.csrfToken(); token != "" {
		return token
	}
	if err := s.Prime(ctx); err != nil {
		log.Printf("[client] csrf priming failed: %v", err)
		return ""
	}
	return s.csrfToken()
}
