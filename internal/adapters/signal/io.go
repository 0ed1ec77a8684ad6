package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/DarkRoom/internal/domain"
	"github.com/dkeye/DarkRoom/internal/protocol"
)

var errUnexpectedEvent = errors.New("event is not accepted from clients")

func (ctl *SignalWSController) writePump(ctx context.Context, p *peer) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(p.sid)).Msg("writePump ctx done")
			_ = p.conn.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(ctl.opts.WriteWait))
			return
		case data, ok := <-p.conn.send:
			if !ok {
				log.Info().Str("module", "signal").Str("conn", string(p.sid)).Msg("writePump channel closed")
				return
			}
			if err := p.conn.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := p.conn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(p.sid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := p.conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(p.sid)).Msg("ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, p *peer) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(p.sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(p.sid)
		ctl.Limiter.Forget(p.sid)
		p.conn.Close()
	}()

	ws := p.conn.conn
	ws.SetReadLimit(ctl.opts.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		ctl.Orch.Presence.Touch(p.sid)
		return ws.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(p.sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Info().Err(err).Str("module", "signal").Str("conn", string(p.sid)).Msg("readPump read error")
				}
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
			ctl.Orch.Presence.Touch(p.sid)
			ctl.handleSignal(p, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(p *peer, data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(p.sid)).Msg("bad frame")
		ctl.sendBadPayload(p, "", err)
		return
	}

	switch e := ev.(type) {
	case protocol.JoinRoom:
		ctl.handleJoin(p, e)
	case protocol.LeaveRoom:
		ctl.handleLeave(p, e)
	case protocol.SendMessage:
		ctl.handleSend(p, e)
	case protocol.CreateRoom:
		ctl.handleCreate(p, e)
	case protocol.DeleteRoom:
		ctl.handleDelete(p, e)
	case protocol.Ping:
		ctl.handlePing(p)
	default:
		log.Warn().Str("module", "signal").Str("conn", string(p.sid)).Str("type", string(ev.Type())).Msg("unexpected signal")
		ctl.sendBadPayload(p, ev.Type(), errUnexpectedEvent)
	}
}

func (ctl *SignalWSController) send(p *peer, ev protocol.Event) {
	b, err := protocol.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode reply")
		return
	}
	if err := p.conn.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(p.sid)).Str("type", string(ev.Type())).Msg("reply dropped")
	}
}

func (ctl *SignalWSController) sendBadPayload(p *peer, op protocol.Type, err error) {
	ctl.sendError(p, protocol.Error{Op: op, Code: domain.CodeBadPayload, Message: err.Error()})
}
