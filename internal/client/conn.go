package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/protocol"
	"github.com/dkeye/DarkRoom/internal/reconcile"
)

var ErrNotJoined = errors.New("not joined to a room")

// Conn is one signal socket. Every inbound event is applied to the client
// cache before it is handed to Events.
type Conn struct {
	ws     *websocket.Conn
	client *Client
	events chan protocol.Event

	wmu sync.Mutex

	mu     sync.Mutex
	roomID domain.RoomID
	alias  domain.Alias

	done chan struct{}
}

// Dial opens the signal socket. It shares the HTTP client's cookie jar so
// the session alias set over REST applies.
func (c *Client) Dial(ctx context.Context) (*Conn, error) {
	u := c.BaseURL + "/api/ws/signal"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: websocket.DefaultDialer.HandshakeTimeout,
		Jar:              c.HTTP.Jar,
	}
	ws, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	conn := &Conn{
		ws:     ws,
		client: c,
		events: make(chan protocol.Event, 256),
		done:   make(chan struct{}),
	}
	go conn.readLoop()
	return conn, nil
}

// Events closes when the socket does.
func (cn *Conn) Events() <-chan protocol.Event { return cn.events }

func (cn *Conn) Join(roomID domain.RoomID, alias string) error {
	if !domain.ValidRoomID(string(roomID)) {
		return domain.ErrInvalidID
	}
	a, err := domain.NewAlias(alias)
	if err != nil {
		return err
	}
	if err := cn.write(protocol.JoinRoom{RoomID: roomID, Alias: string(a)}); err != nil {
		return err
	}
	cn.mu.Lock()
	cn.roomID, cn.alias = roomID, a
	cn.mu.Unlock()
	return nil
}

// Send appends an optimistic entry to the cache and ships it.
func (cn *Conn) Send(content string) (reconcile.Entry, error) {
	cn.mu.Lock()
	roomID, alias := cn.roomID, cn.alias
	cn.mu.Unlock()
	if roomID == "" {
		return reconcile.Entry{}, ErrNotJoined
	}
	normalized, err := domain.NormalizeContent(content)
	if err != nil {
		return reconcile.Entry{}, err
	}

	e := cn.client.Cache.AddPending(roomID, alias, normalized, cn.client.now())
	err = cn.write(protocol.SendMessage{
		RoomID:     roomID,
		Alias:      string(alias),
		Content:    normalized,
		ClientTime: e.SentAt.UnixMilli(),
		ClientRef:  e.ClientRef,
	})
	if err != nil {
		cn.client.Cache.DropPending(roomID, e.LocalID)
		return reconcile.Entry{}, err
	}
	return e, nil
}

func (cn *Conn) Leave() error {
	cn.mu.Lock()
	roomID := cn.roomID
	cn.roomID = ""
	cn.mu.Unlock()
	if roomID == "" {
		return nil
	}
	return cn.write(protocol.LeaveRoom{RoomID: roomID})
}

func (cn *Conn) CreateRoom(name, description, createdBy string) error {
	return cn.write(protocol.CreateRoom{Name: name, Description: description, CreatedBy: createdBy})
}

func (cn *Conn) DeleteRoom(roomID domain.RoomID, deletedBy string) error {
	if !domain.ValidRoomID(string(roomID)) {
		return domain.ErrInvalidID
	}
	return cn.write(protocol.DeleteRoom{RoomID: roomID, DeletedBy: deletedBy})
}

func (cn *Conn) Ping() error {
	return cn.write(protocol.Ping{})
}

func (cn *Conn) Close() error {
	err := cn.ws.Close()
	<-cn.done
	return err
}

func (cn *Conn) write(ev protocol.Event) error {
	b, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	cn.wmu.Lock()
	defer cn.wmu.Unlock()
	if err := cn.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("write %s: %w", ev.Type(), err)
	}
	return nil
}

func (cn *Conn) readLoop() {
	defer func() {
		close(cn.events)
		close(cn.done)
	}()
	for {
		_, data, err := cn.ws.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "client").Msg("read loop ended")
			return
		}
		ev, err := protocol.Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("undecodable frame")
			continue
		}
		cn.client.Cache.Apply(ev)
		if d, ok := ev.(protocol.RoomDisbanded); ok {
			cn.mu.Lock()
			if cn.roomID == d.RoomID {
				cn.roomID = ""
			}
			cn.mu.Unlock()
		}
		select {
		case cn.events <- ev:
		default:
			log.Warn().Str("module", "client").Str("type", string(ev.Type())).Msg("event buffer full, dropping")
		}
	}
}
