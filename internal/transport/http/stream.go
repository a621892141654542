package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sampsyo/band/internal/domain"
)

// Live streams deliver events published after the client attaches; earlier
// messages come from the history endpoint. Clients must read history before
// attaching or they can miss messages in between.

// handleSSE is the stream the web client consumes: server-sent events
// named "message" and "vote".
func (ctl *Controller) handleSSE(ctx context.Context, c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	ch, cancel, err := ctl.Dispatcher.Subscribe(room)
	if err != nil {
		fail(c, err)
		return
	}
	defer cancel()

	log.Info().Str("module", "transport.http").
		Str("ct", c.GetString("client_token")).
		Str("room", c.Param("room")).
		Msg("sse subscriber attached")

	ping := time.NewTicker(ctl.Config.PingPeriod)
	defer ping.Stop()
	clientGone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-clientGone:
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			name, data := encodeEvent(ev)
			c.SSEvent(name, data)
			return true
		case <-ping.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}

// encodeEvent renders an event as its SSE name and JSON payload.
func encodeEvent(ev domain.Event) (string, string) {
	switch e := ev.(type) {
	case domain.MessageEvent:
		data, _ := json.Marshal(toWire(e.Message))
		return "message", string(data)
	case domain.VoteEvent:
		data, _ := json.Marshal(toWireVote(e))
		return "vote", string(data)
	default:
		return "unknown", "{}"
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// handleWS serves the same event stream over a websocket for non-browser
// clients.
func (ctl *Controller) handleWS(ctx context.Context, c *gin.Context) {
	room, err := roomParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	ch, cancel, err := ctl.Dispatcher.Subscribe(room)
	if err != nil {
		fail(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		log.Error().Err(err).Str("module", "transport.http").Msg("ws upgrade")
		return
	}

	ctx, stop := context.WithCancel(ctx)
	go ctl.wsWritePump(ctx, ws, ch, func() { stop(); cancel() })
	go ctl.wsReadPump(ctx, ws, stop)
}

func (ctl *Controller) wsWritePump(ctx context.Context, ws *websocket.Conn, ch <-chan domain.Event, done func()) {
	ping := time.NewTicker(ctl.Config.PingPeriod)
	defer func() {
		ping.Stop()
		done()
		_ = ws.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			name, data := encodeEvent(ev)
			frame, err := json.Marshal(wsEnvelope{Type: name, Data: json.RawMessage(data)})
			if err != nil {
				log.Error().Err(err).Str("module", "transport.http").Msg("ws marshal")
				continue
			}
			if err := ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsReadPump discards inbound frames; the socket is read-only for clients.
// Its job is to notice the peer going away and stop the writer.
func (ctl *Controller) wsReadPump(ctx context.Context, ws *websocket.Conn, stop context.CancelFunc) {
	defer stop()
	ws.SetReadLimit(ctl.Config.ReadLimit)
	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
