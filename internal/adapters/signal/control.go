package signal

import "github.com/dkeye/DarkRoom/internal/protocol"

func (ctl *SignalWSController) handlePing(p *peer) {
	ctl.send(p, protocol.Pong{})
}
