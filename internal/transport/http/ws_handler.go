package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdhttp "net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireroom-server/internal/config"
	"github.com/vovakirdan/wireroom-server/internal/core"
	"github.com/vovakirdan/wireroom-server/internal/proto"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var (
	errKicked      = errors.New("client kicked")
	errRateLimited = errors.New("rate limit exceeded")
)

// WSHandler upgrades HTTP connections and bridges them to the hub. Each
// connection gets a reader that validates and dispatches inbound events and
// a writer that drains the client's outbound queue.
type WSHandler struct {
	hub     *core.Hub
	cfg     *config.Config
	decoder *decoder
	log     *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:     hub,
		cfg:     cfg,
		decoder: newDecoder(cfg.MaxStrokePoints),
		log:     logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, acceptOptions(h.cfg.AllowedOrigins))
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := core.NewClient(uuid.NewString(), h.cfg.OutboundQueueSize)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	logger := h.log.With().Str("client_id", client.ID).Logger()
	logger.Debug().Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &logger)
	}()
	go func() {
		errCh <- keepalive(ctx, conn)
	}()

	err = <-errCh
	status, reason := closeStatus(err, client, &logger)
	// Close before cancelling so the peer receives the status code.
	conn.Close(status, reason)
	cancel()
	<-errCh
	<-errCh

	logger.Debug().Msg("ws disconnected")
}

func closeStatus(err error, client *core.Client, logger *zerolog.Logger) (websocket.StatusCode, string) {
	switch {
	case errors.Is(err, errKicked) && client.KickReason() == core.KickShutdown:
		return websocket.StatusGoingAway, core.KickShutdown
	case errors.Is(err, errKicked):
		reason := client.KickReason()
		logger.Warn().Str("reason", reason).Msg("disconnecting slow client")
		return websocket.StatusPolicyViolation, reason
	case errors.Is(err, errRateLimited):
		logger.Warn().Msg("disconnecting client for excessive rate limit violations")
		return websocket.StatusPolicyViolation, core.ErrCodeRateLimited
	case err != nil && !errors.Is(err, context.Canceled):
		if s := websocket.CloseStatus(err); s != websocket.StatusNormalClosure && s != websocket.StatusGoingAway {
			logger.Debug().Err(err).Msg("ws connection closed with error")
		}
	}
	return websocket.StatusNormalClosure, "closing"
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	limiter := newRateLimiter(h.cfg.InboundRate, h.cfg.InboundBurst, h.cfg.MaxRateViolations)

	for {
		// Read raw frames: wsjson.Read closes the connection on a JSON error,
		// and a bad payload must only drop that one event.
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !limiter.allow() {
			if limiter.exhausted() {
				return errRateLimited
			}
			if limiter.shouldWarn() {
				logger.Warn().Int("violations", limiter.violations).Msg("rate limit exceeded")
				client.Deliver(errorEvent("", core.ErrCodeRateLimited, "too many events"))
			}
			continue
		}

		h.handleFrame(ctx, client, data, logger)
	}
}

// handleFrame decodes and dispatches one inbound frame. Faults are logged and
// reported to the sender; they never end the connection.
func (h *WSHandler) handleFrame(ctx context.Context, client *core.Client, data []byte, logger *zerolog.Logger) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error().Str("panic", fmt.Sprint(p)).Bytes("stack", debug.Stack()).Msg("inbound handler panicked")
		}
	}()

	var inbound proto.Inbound
	if err := json.Unmarshal(data, &inbound); err != nil {
		logger.Warn().Err(err).Msg("dropping unparsable frame")
		client.Deliver(errorEvent("", core.ErrCodeBadRequest, "invalid json"))
		return
	}

	current, _ := h.hub.CurrentRoom(client)
	cmd, err := h.decoder.decode(inbound, current)
	if err != nil {
		logger.Warn().Err(err).Str("event", inbound.Type).Msg("dropping malformed event")
		client.Deliver(errorEvent(current, core.ErrCodeBadRequest, err.Error()))
		return
	}
	cmd.Client = client

	switch cmd.Kind {
	case core.CommandJoinRoom:
		err = h.hub.Join(ctx, client, cmd.Room, cmd.DisplayName)
	case core.CommandLeaveRoom:
		h.hub.Leave(ctx, client)
	default:
		err = h.hub.Dispatch(ctx, cmd)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str("event", inbound.Type).Str("room_id", cmd.Room).Msg("dispatch failed")
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events:
			if err := writeEvent(ctx, conn, event); err != nil {
				logger.Debug().Err(err).Str("event", event.Kind.String()).Msg("write ws event")
				return err
			}
		case <-client.Kicked():
			return errKicked
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, event *core.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return wsjson.Write(ctx, conn, outboundFromEvent(event))
}

// keepalive pings the peer so dead connections are noticed and cleaned up.
func keepalive(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func errorEvent(room, code, msg string) *core.Event {
	return &core.Event{Kind: core.EventError, Room: room, Error: &core.CoreError{Code: code, Message: msg}}
}

func acceptOptions(origins []string) *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, o := range origins {
		if o == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		opts.OriginPatterns = append(opts.OriginPatterns, o)
	}
	return opts
}
