package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to a Daily-compatible rooms REST API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type createRoomRequest struct {
	Privacy    string         `json:"privacy"`
	Properties roomProperties `json:"properties"`
}

type roomProperties struct {
	Exp int64 `json:"exp"`
}

func (c *Client) CreateRoom(ctx context.Context, expiry time.Time) (Room, error) {
	payload, err := json.Marshal(createRoomRequest{
		Privacy:    "public",
		Properties: roomProperties{Exp: expiry.Unix()},
	})
	if err != nil {
		return Room{}, &ProvisioningError{Op: "create", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rooms", bytes.NewReader(payload))
	if err != nil {
		return Room{}, &ProvisioningError{Op: "create", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return Room{}, &ProvisioningError{Op: "create", Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Room{}, &ProvisioningError{
			Op:  "create",
			Err: fmt.Errorf("rooms api status %d: %s", res.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var room Room
	if err := json.NewDecoder(res.Body).Decode(&room); err != nil {
		return Room{}, &ProvisioningError{Op: "create", Err: fmt.Errorf("decode response: %w", err)}
	}
	if room.ID == "" || room.URL == "" {
		return Room{}, &ProvisioningError{Op: "create", Err: fmt.Errorf("rooms api returned incomplete room: %+v", room)}
	}

	c.log.Debug().Str("room_id", room.ID).Str("room_name", room.Name).Msg("room created")
	return room, nil
}

func (c *Client) DeleteRoom(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/rooms/"+name, nil)
	if err != nil {
		return &ProvisioningError{Op: "delete", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return &ProvisioningError{Op: "delete", Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	// A room that is already gone counts as deleted. This keeps session
	// removal retryable after a partial teardown.
	if res.StatusCode == http.StatusNotFound {
		c.log.Debug().Str("room_name", name).Msg("room already gone")
		return nil
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &ProvisioningError{
			Op:  "delete",
			Err: fmt.Errorf("rooms api status %d: %s", res.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return nil
}
