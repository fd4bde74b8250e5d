// Package links builds shareable deep links for joining a session.
package links

import (
	"fmt"
	"net/url"
	"time"
)

// Builder produces join links rooted at a fixed base URL.
type Builder struct {
	base *url.URL
}

func NewBuilder(baseURL string) (*Builder, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse link base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("link base url %q must be absolute", baseURL)
	}
	return &Builder{base: u}, nil
}

// SessionLink returns the shareable link for one session.
func (b *Builder) SessionLink(sessionID, contentID string, startTime time.Time, language string) string {
	u := *b.base
	q := u.Query()
	q.Set("sessionId", sessionID)
	q.Set("contentId", contentID)
	q.Set("startTime", startTime.UTC().Format(time.RFC3339))
	if language != "" {
		q.Set("language", language)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
