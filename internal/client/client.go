// Package client talks to a DarkRoom server over REST and the signal socket
// and keeps a reconciled local cache of what it has seen.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/reconcile"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Cache   *reconcile.Cache
	now     func() time.Time
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Cache:   reconcile.NewCache(reconcile.DefaultWindow),
		now:     time.Now,
	}
}

// APIError is a non-2xx reply. It unwraps to the matching domain sentinel.
type APIError struct {
	Status  int
	Code    domain.Code
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return domain.ErrorFor(e.Code)
}

// ListRooms fetches the registry listing and reseeds the cache with it.
func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var body struct {
		Rooms []domain.Room `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, &body); err != nil {
		return nil, err
	}
	c.Cache.SeedRooms(body.Rooms)
	return body.Rooms, nil
}

// LookupRoom backs the join-by-id flow. Malformed ids fail locally with
// ErrInvalidID and never reach the network.
func (c *Client) LookupRoom(ctx context.Context, id string) (domain.Room, error) {
	id = strings.TrimSpace(id)
	if !domain.ValidRoomID(id) {
		return domain.Room{}, domain.ErrInvalidID
	}
	var room domain.Room
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(id), nil, &room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (c *Client) CreateRoom(ctx context.Context, name, description, createdBy string) (domain.Room, error) {
	req := map[string]string{"name": name, "description": description, "createdBy": createdBy}
	var room domain.Room
	if err := c.do(ctx, http.MethodPost, "/api/rooms", req, &room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Code: domain.CodeInternal}
		var payload struct {
			Code    domain.Code `json:"code"`
			Message string      `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Code != "" {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
